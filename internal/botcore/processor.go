package botcore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// JobHandler executes one job payload. A returned error schedules a retry.
type JobHandler func(ctx context.Context, payload []byte) error

// Registrar is the consumer side of a queue.
type Registrar interface {
	Register(name string, concurrency int, handler JobHandler)
}

// Processor dispatches queued jobs to the BotService of the job's messenger.
type Processor struct {
	mu       sync.RWMutex
	services map[MessengerType]BotService
	logger   *zap.Logger
}

// NewProcessor builds a processor for the given services.
func NewProcessor(logger *zap.Logger, services ...BotService) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		services: make(map[MessengerType]BotService, len(services)),
		logger:   logger,
	}
	for _, svc := range services {
		p.Add(svc)
	}
	return p
}

// Add routes jobs of svc.Messenger() to svc, replacing any previous one.
func (p *Processor) Add(svc BotService) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.services[svc.Messenger()] = svc
}

// Register binds every job name to the registrar with fixed concurrency.
func (p *Processor) Register(r Registrar) {
	for _, name := range []string{JobShareSong, JobUpdateShare, JobPostToChat, JobInlineQuery} {
		name := name
		r.Register(name, JobConcurrency, func(ctx context.Context, payload []byte) error {
			return p.Handle(ctx, name, payload)
		})
	}
}

// Handle decodes a job payload and runs it on the matching service.
func (p *Processor) Handle(ctx context.Context, name string, payload []byte) error {
	p.logger.Debug("process job", zap.String("job", name))

	switch name {
	case JobShareSong:
		var job ShareSongJob
		svc, err := p.decode(payload, &job, &job.Message)
		if err != nil {
			return err
		}
		return svc.ProcessShare(ctx, &job.Message, job.Config)

	case JobUpdateShare:
		var job UpdateShareJob
		svc, err := p.decode(payload, &job, &job.Message)
		if err != nil {
			return err
		}
		svc.ProcessUpdateShare(ctx, job)
		return nil

	case JobPostToChat:
		var job PostToChatJob
		svc, err := p.decode(payload, &job, &job.Message)
		if err != nil {
			return err
		}
		return svc.ProcessPostToChat(ctx, job)

	case JobInlineQuery:
		var job InlineQueryJob
		svc, err := p.decode(payload, &job, &job.Message)
		if err != nil {
			return err
		}
		svc.ProcessSearch(ctx, &job.Message)
		return nil

	default:
		return fmt.Errorf("unknown job %q", name)
	}
}

func (p *Processor) decode(payload []byte, job any, m *Message) (BotService, error) {
	if err := json.Unmarshal(payload, job); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}
	p.mu.RLock()
	svc, ok := p.services[m.MessengerType()]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no bot service for messenger %q", m.MessengerType())
	}
	return svc, nil
}
