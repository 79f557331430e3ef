package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/logging"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrStopped   = errors.New("notification dispatcher stopped")
)

// Failure reports a message that could not be delivered.
type Failure struct {
	Message Message
	Err     error
}

// Dispatcher fans messages out to a fixed pool of workers. Enqueue never
// blocks; delivery failures are logged and published on Failures.
type Dispatcher struct {
	next        Notifier
	logger      logging.Logger
	queue       chan Message
	failures    chan Failure
	sendTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(next Notifier, logger logging.Logger, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		next:        next,
		logger:      logger,
		queue:       make(chan Message, queueSize),
		failures:    make(chan Failure, queueSize),
		sendTimeout: 30 * time.Second,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Send enqueues msg, so a Dispatcher is itself a Notifier.
func (d *Dispatcher) Send(_ context.Context, msg Message) error {
	return d.Enqueue(msg)
}

func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Failures exposes delivery failures. Reports are dropped when nobody reads.
func (d *Dispatcher) Failures() <-chan Failure {
	return d.failures
}

// Close stops accepting messages and waits for queued ones to drain or ctx
// to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		err := d.next.Send(ctx, msg)
		cancel()
		if err == nil {
			continue
		}

		d.logger.Error(ctx, "mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
		select {
		case d.failures <- Failure{Message: msg, Err: err}:
		default:
		}
	}
}
