package bot

import (
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull indicates the update queue is currently saturated.
	ErrQueueFull = errors.New("update queue full")
	// ErrDispatcherStopped is returned by Enqueue and Push after Stop.
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

// Dispatcher hands inbound updates to a fixed pool of workers.
// Each update is handled to completion by one worker.
type Dispatcher struct {
	handle  func(tgbotapi.Update)
	jobs    chan tgbotapi.Update
	workers int
	logger  *zap.Logger

	mu        sync.RWMutex
	stopped   bool
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewDispatcher constructs a dispatcher
func NewDispatcher(workers, size int, handle func(tgbotapi.Update), logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 128
	}
	return &Dispatcher{
		handle:  handle,
		jobs:    make(chan tgbotapi.Update, size),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker goroutines
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.workerLoop()
		}
	})
}

func (d *Dispatcher) workerLoop() {
	defer d.wg.Done()
	for update := range d.jobs {
		d.run(update)
	}
}

// run isolates one update so a panic never takes the worker down
func (d *Dispatcher) run(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic in update handler",
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", r),
			)
		}
	}()
	d.handle(update)
}

// Enqueue submits an update without blocking
func (d *Dispatcher) Enqueue(update tgbotapi.Update) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	select {
	case d.jobs <- update:
		return nil
	default:
		d.logger.Warn("Dropping update: queue full", zap.Int("update_id", update.UpdateID))
		return ErrQueueFull
	}
}

// Push submits an update, waiting for queue space
func (d *Dispatcher) Push(update tgbotapi.Update) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	d.jobs <- update
	return nil
}

// Stop drains queued updates and waits for the workers to finish
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		close(d.jobs)
		d.mu.Unlock()
		d.wg.Wait()
	})
}
