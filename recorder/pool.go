// Package recorder provides an asynchronous worker pool that persists chat
// turns with a storage.Driver and announces them on an eventstream.Publisher.
//
// The pool keeps storage and publishing off the chat server's request path so
// a slow database or broker never delays a reply.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/folio/pkg/eventstream"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 30 * time.Second
)

// ErrNoSinks is returned by NewPool when neither a Driver nor a Publisher is set.
var ErrNoSinks = errors.New("recorder needs a storage driver or an event publisher")

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Turn *llm.Turn
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting turns. Optional.
	Driver storage.Driver

	// Publisher receives a TurnRecordedEvent after each stored turn. Optional.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the store and publish of a single job.
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes recording jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed so Enqueue never sends on a closed queue
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil && c.Publisher == nil {
		return nil, ErrNoSinks
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	if job.Turn == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, recorder closed", "turn_id", job.Turn.ID)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "turn_id", job.Turn.ID)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "turn_id", job.Turn.ID)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob stores the turn and then publishes it. A storage failure skips
// publishing so consumers never see a turn that cannot be fetched.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	turn := job.Turn
	if p.config.Driver != nil {
		if err := p.config.Driver.Put(ctx, turn); err != nil {
			p.logger.Error("turn storage failed", "turn_id", turn.ID, "error", err)
			return
		}
		p.logger.Info("turn stored",
			"turn_id", turn.ID,
			"conversation_id", turn.ConversationID,
			"duration", turn.Duration(),
		)
	}

	if p.config.Publisher == nil {
		return
	}

	event, err := eventstream.NewTurnRecordedEvent(turn)
	if err != nil {
		p.logger.Error("building turn event failed", "turn_id", turn.ID, "error", err)
		return
	}

	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		p.logger.Warn("turn event publish failed", "turn_id", turn.ID, "error", err)
		return
	}

	p.logger.Debug("turn event published", "turn_id", turn.ID, "event_id", event.EventID)
}
