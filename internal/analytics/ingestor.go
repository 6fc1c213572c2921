package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/halcyon/model-bridge-api/internal/store"
	"github.com/halcyon/model-bridge-api/internal/store/model"
	"go.uber.org/zap"
)

// Ingestor handles the asynchronous persistence of audit records so the
// request path never waits on sqlite.
type Ingestor interface {
	LogRequest(log *model.RequestLog)
	RecordResolution(public, backend, source string, thinking bool)
	Start(ctx context.Context)
	Stop()
}

// entry is the union of everything the worker can persist.
type entry struct {
	request    *model.RequestLog
	resolution *model.ResolutionLog
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	entries   chan entry
	done      chan struct{}
	batchSize int
	flushTime time.Duration

	// guards closed so a late push never hits a closed channel
	mu     sync.Mutex
	closed bool
}

func NewIngestor(logger *zap.Logger, repo store.Repository) Ingestor {
	return &ingestor{
		logger:    logger,
		repo:      repo,
		entries:   make(chan entry, 10000),
		done:      make(chan struct{}),
		batchSize: 50,
		flushTime: 5 * time.Second,
	}
}

func (i *ingestor) LogRequest(log *model.RequestLog) {
	i.push(entry{request: log})
}

func (i *ingestor) RecordResolution(public, backend, source string, thinking bool) {
	i.push(entry{resolution: &model.ResolutionLog{
		ID:          uuid.NewString(),
		PublicName:  public,
		BackendName: backend,
		Source:      source,
		Thinking:    thinking,
		CreatedAt:   time.Now(),
	}})
}

func (i *ingestor) push(e entry) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return
	}

	select {
	case i.entries <- e:
	default:
		i.logger.Warn("analytics buffer full, dropping record")
	}
}

func (i *ingestor) Start(ctx context.Context) {
	go i.worker(ctx)
}

// Stop closes the intake and blocks until buffered records are flushed.
// Records pushed after Stop are dropped silently. Safe to call twice.
func (i *ingestor) Stop() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		<-i.done
		return
	}
	i.closed = true
	i.mu.Unlock()

	close(i.entries)
	<-i.done
}

func (i *ingestor) worker(ctx context.Context) {
	defer close(i.done)

	batch := make([]entry, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		for _, e := range batch {
			var err error
			switch {
			case e.request != nil:
				err = i.repo.Requests().Log(context.Background(), e.request)
			case e.resolution != nil:
				err = i.repo.Resolutions().Log(context.Background(), e.resolution)
			}
			if err != nil {
				i.logger.Error("failed to persist audit record", zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case e, ok := <-i.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}

// nop drops everything; used when the audit store is disabled.
type nop struct{}

func NewNop() Ingestor { return nop{} }

func (nop) LogRequest(*model.RequestLog)                  {}
func (nop) RecordResolution(string, string, string, bool) {}
func (nop) Start(context.Context)                         {}
func (nop) Stop()                                         {}
