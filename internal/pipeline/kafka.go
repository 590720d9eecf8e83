package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"whisperengine/internal/observability"
	"whisperengine/internal/platform"
)

// KafkaConsumerConfig configures the optional Kafka-backed inbound queue
// (spec.md §5 backpressure), an alternative to a direct adapter->Submit
// call for deployments that front the controller with a message bus.
type KafkaConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

// inboundEnvelope is the wire shape of one Kafka-delivered inbound message.
type inboundEnvelope struct {
	Platform    string              `json:"platform"`
	UserID      string              `json:"user_id"`
	ChannelID   string              `json:"channel_id"`
	MessageID   string              `json:"message_id"`
	Content     string              `json:"content"`
	Attachments []inboundAttachment `json:"attachments,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

type inboundAttachment struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	Filename    string `json:"filename"`
}

// RunKafkaConsumer reads inbound messages from cfg.Topic and hands each to
// Submit, so messages still flow through the per-channel FIFO queue (§5)
// regardless of which inbound path delivered them. It blocks until ctx is
// cancelled or the reader returns a fatal error. Offsets are committed as
// soon as Submit has queued the message: a crash before that point
// redelivers it, but a message already queued when the process stops is
// not redelivered.
func (c *Controller) RunKafkaConsumer(ctx context.Context, cfg KafkaConsumerConfig) error {
	logger := observability.LoggerWithTrace(ctx)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn().Err(err).Msg("pipeline: kafka reader close failed")
		}
	}()

	for {
		kmsg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var env inboundEnvelope
		if err := json.Unmarshal(kmsg.Value, &env); err != nil {
			logger.Warn().Err(err).Msg("pipeline: discarding malformed kafka inbound message")
			if cerr := reader.CommitMessages(ctx, kmsg); cerr != nil {
				logger.Warn().Err(cerr).Msg("pipeline: commit after malformed message failed")
			}
			continue
		}

		msg := platform.Message{
			Platform:  env.Platform,
			UserID:    env.UserID,
			ChannelID: env.ChannelID,
			MessageID: env.MessageID,
			Content:   env.Content,
			Timestamp: env.Timestamp,
		}
		for _, a := range env.Attachments {
			msg.Attachments = append(msg.Attachments, platform.Attachment{
				ContentType: a.ContentType,
				Data:        a.Data,
				Filename:    a.Filename,
			})
		}

		if err := c.Submit(ctx, msg); err != nil {
			return err
		}
		if cerr := reader.CommitMessages(ctx, kmsg); cerr != nil {
			logger.Warn().Err(cerr).Msg("pipeline: commit inbound message failed")
		}
	}
}
