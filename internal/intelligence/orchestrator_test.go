package intelligence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunCollectsAllFourResults(t *testing.T) {
	o := NewOrchestrator()
	bundle := o.Run(context.Background(), Tasks{
		ExternalEmotion:  func(ctx context.Context) (*ExternalEmotion, error) { return &ExternalEmotion{Label: "calm"}, nil },
		IntrinsicEmotion: func(ctx context.Context) (*IntrinsicEmotion, error) { return &IntrinsicEmotion{Label: "neutral"}, nil },
		Personality:      func(ctx context.Context) (*PersonalityAnalysis, error) { return &PersonalityAnalysis{}, nil },
		HumanLike:        func(ctx context.Context) (*HumanLikeIntelligence, error) { return &HumanLikeIntelligence{Summary: "ok"}, nil },
	})

	assert.NotNil(t, bundle.ExternalEmotion)
	assert.NotNil(t, bundle.IntrinsicEmotion)
	assert.NotNil(t, bundle.Personality)
	assert.NotNil(t, bundle.HumanLike)
}

func TestRunToleratesFailingTask(t *testing.T) {
	o := NewOrchestrator()
	bundle := o.Run(context.Background(), Tasks{
		ExternalEmotion: func(ctx context.Context) (*ExternalEmotion, error) { return nil, errors.New("api down") },
		Personality:     func(ctx context.Context) (*PersonalityAnalysis, error) { return &PersonalityAnalysis{}, nil },
	})

	assert.Nil(t, bundle.ExternalEmotion)
	assert.NotNil(t, bundle.Personality)
}

func TestRunToleratesPanickingTask(t *testing.T) {
	o := NewOrchestrator()
	bundle := o.Run(context.Background(), Tasks{
		IntrinsicEmotion: func(ctx context.Context) (*IntrinsicEmotion, error) { panic("boom") },
		Personality:      func(ctx context.Context) (*PersonalityAnalysis, error) { return &PersonalityAnalysis{}, nil },
	})

	assert.Nil(t, bundle.IntrinsicEmotion)
	assert.NotNil(t, bundle.Personality)
}

func TestRunDiscardsResultAfterPerTaskTimeout(t *testing.T) {
	o := &Orchestrator{perTaskTimeout: 10 * time.Millisecond, globalDeadline: 100 * time.Millisecond}
	bundle := o.Run(context.Background(), Tasks{
		ExternalEmotion: func(ctx context.Context) (*ExternalEmotion, error) {
			select {
			case <-time.After(50 * time.Millisecond):
				return &ExternalEmotion{Label: "too_late"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})
	assert.Nil(t, bundle.ExternalEmotion)
}

func TestRunNilTaskYieldsNilField(t *testing.T) {
	o := NewOrchestrator()
	bundle := o.Run(context.Background(), Tasks{})
	assert.Nil(t, bundle.ExternalEmotion)
	assert.Nil(t, bundle.IntrinsicEmotion)
	assert.Nil(t, bundle.Personality)
	assert.Nil(t, bundle.HumanLike)
}
