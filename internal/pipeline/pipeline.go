// Package pipeline implements the Pipeline Controller (L11): the single
// per-turn flow that wires the Token Accountant, Query Classifier,
// Vector Memory Store, Knowledge Store, Boundary Manager, Context Switch
// Detector, Empathy Calibrator, Character Self-Knowledge, Parallel
// Intelligence Orchestrator, Prompt Assembler, and the LLM client, per
// spec.md §4.11.
package pipeline

import (
	"context"
	"sync"
	"time"

	"whisperengine/internal/boundary"
	"whisperengine/internal/character"
	"whisperengine/internal/contextswitch"
	"whisperengine/internal/empathy"
	"whisperengine/internal/intelligence"
	"whisperengine/internal/knowledge"
	"whisperengine/internal/llmclient"
	"whisperengine/internal/memory"
	"whisperengine/internal/objectstore"
	"whisperengine/internal/observability"
	"whisperengine/internal/platform"
	"whisperengine/internal/prompt"
	"whisperengine/internal/selfknowledge"
	"whisperengine/internal/transcribe"
)

const (
	defaultGlobalDeadline = 45 * time.Second
	defaultChunkSize      = 2000
	defaultQueueDepth     = 32

	memorySearchLimit        = 10
	knowledgeFactLimit       = 20
	recentEmotionsLimit      = 5
	contradictionThreshold   = 0.6
	conversationHistoryLimit = 20
)

// EmotionAnalyzer is the optional external emotion API capability (§4.9
// ExternalEmotion task). Nil disables the task.
type EmotionAnalyzer interface {
	Analyze(ctx context.Context, text string) (*intelligence.ExternalEmotion, error)
}

// Options wires every dependency the controller needs. Fields left nil/zero
// disable the corresponding optional capability rather than failing startup.
type Options struct {
	Character character.Character

	Boundary      *boundary.Manager
	Memory        memory.Store
	Knowledge     knowledge.Store
	SelfExtractor *selfknowledge.Extractor
	SelfDiscovery *selfknowledge.TraitDiscovery
	ContextSwitch *contextswitch.Detector
	Empathy       *empathy.Calibrator
	Orchestrator  *intelligence.Orchestrator
	Assembler     *prompt.Assembler

	LLM   llmclient.Provider
	Model string

	EmotionClient EmotionAnalyzer         // optional
	Transcriber   *transcribe.Transcriber // optional
	Attachments   objectstore.ObjectStore // optional

	Adapter platform.Adapter

	QueueDepth     int
	GlobalDeadline time.Duration
}

// Controller runs the 8-step per-turn flow (spec.md §4.11) and enforces
// the concurrency and backpressure policy of spec.md §5.
type Controller struct {
	character character.Character

	boundary      *boundary.Manager
	memoryStore   memory.Store
	knowledge     knowledge.Store
	selfExtractor *selfknowledge.Extractor
	selfDiscovery *selfknowledge.TraitDiscovery
	contextSwitch *contextswitch.Detector
	empathy       *empathy.Calibrator
	orchestrator  *intelligence.Orchestrator
	assembler     *prompt.Assembler

	llm   llmclient.Provider
	model string

	emotionClient EmotionAnalyzer
	transcriber   *transcribe.Transcriber
	attachments   objectstore.ObjectStore

	adapter platform.Adapter

	globalDeadline time.Duration
	chunkSize      int

	queueDepth int
	queuesMu   sync.Mutex
	queues     map[string]chan platform.Message
}

// New constructs a Controller from opts. Orchestrator defaults to
// intelligence.NewOrchestrator() if not supplied.
func New(opts Options) *Controller {
	orch := opts.Orchestrator
	if orch == nil {
		orch = intelligence.NewOrchestrator()
	}
	assembler := opts.Assembler
	if assembler == nil {
		assembler = prompt.NewAssembler()
	}
	deadline := opts.GlobalDeadline
	if deadline <= 0 {
		deadline = defaultGlobalDeadline
	}
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}

	return &Controller{
		character:      opts.Character,
		boundary:       opts.Boundary,
		memoryStore:    opts.Memory,
		knowledge:      opts.Knowledge,
		selfExtractor:  opts.SelfExtractor,
		selfDiscovery:  opts.SelfDiscovery,
		contextSwitch:  opts.ContextSwitch,
		empathy:        opts.Empathy,
		orchestrator:   orch,
		assembler:      assembler,
		llm:            opts.LLM,
		model:          opts.Model,
		emotionClient:  opts.EmotionClient,
		transcriber:    opts.Transcriber,
		attachments:    opts.Attachments,
		adapter:        opts.Adapter,
		globalDeadline: deadline,
		chunkSize:      defaultChunkSize,
		queueDepth:     depth,
		queues:         map[string]chan platform.Message{},
	}
}

// Submit enqueues msg onto its channel's bounded FIFO queue, starting that
// channel's worker on first use. Submit blocks when the queue is full
// (spec.md §5 backpressure: "adapter pushes block"), unless ctx is
// cancelled first.
func (c *Controller) Submit(ctx context.Context, msg platform.Message) error {
	queue := c.channelQueue(msg.ChannelID)
	select {
	case queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) channelQueue(channelID string) chan platform.Message {
	c.queuesMu.Lock()
	defer c.queuesMu.Unlock()

	if q, ok := c.queues[channelID]; ok {
		return q
	}
	q := make(chan platform.Message, c.queueDepth)
	c.queues[channelID] = q
	go c.drain(channelID, q)
	return q
}

// drain processes one channel's messages strictly in arrival order,
// satisfying the per-(user,channel) FIFO ordering guarantee (spec.md §5).
func (c *Controller) drain(channelID string, queue chan platform.Message) {
	for msg := range queue {
		c.HandleMessage(context.Background(), msg)
	}
}

// HandleMessage runs the full per-turn flow for one message and sends the
// resulting reply through the adapter. It never panics and never blocks
// past the global deadline.
func (c *Controller) HandleMessage(ctx context.Context, msg platform.Message) {
	ctx, cancel := context.WithTimeout(ctx, c.globalDeadline)
	defer cancel()

	logger := observability.LoggerWithTrace(ctx)

	reply := c.processTurn(ctx, msg)

	if c.adapter == nil {
		return
	}
	if err := c.adapter.Send(msg.ChannelID, reply); err != nil {
		logger.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("pipeline: adapter send failed")
	}
}
