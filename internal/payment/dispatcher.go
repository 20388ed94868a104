package payment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrQueueFull = errors.New("payment poll queue is full")

// PollJob hands ownership of a pending session to a worker.
type PollJob struct {
	Session *Session
}

type Worker struct {
	ID         int
	WorkerPool chan chan PollJob
	JobChannel chan PollJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan PollJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan PollJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(context.Context, PollJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("poll worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("poll worker picked up session", "worker_id", w.ID, "session_id", job.Session.ID)
				processFunc(ctx, job)
			case <-ctx.Done():
				w.Logger.Debug("poll worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	MaxWorkers   int
	JobQueueSize int
}

// Dispatcher runs confirmation loops on a bounded pool of workers so a burst of
// initiations cannot spawn unbounded goroutines.
type Dispatcher struct {
	jobQueue   chan PollJob
	workerPool chan chan PollJob
	maxWorkers int
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewDispatcher(config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	return &Dispatcher{
		jobQueue:   make(chan PollJob, jobQueueSize),
		workerPool: make(chan chan PollJob, maxWorkers),
		maxWorkers: maxWorkers,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers. Jobs enqueued earlier wait in the queue until then.
func (d *Dispatcher) Start(processFunc func(context.Context, PollJob)) {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, processFunc)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("payment poll workers started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.logger.Info("poll dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("poll dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("poll dispatcher shutting down")
			return
		}
	}
}

// Enqueue never blocks; it fails with ErrQueueFull when the backlog is at capacity.
func (d *Dispatcher) Enqueue(job PollJob) error {
	if d.ctx.Err() != nil {
		return context.Canceled
	}

	select {
	case d.jobQueue <- job:
		d.logger.Debug("payment poll queued",
			"session_id", job.Session.ID,
			"queue_length", len(d.jobQueue))
		return nil
	default:
		d.logger.Warn("payment poll queue full",
			"session_id", job.Session.ID,
			"queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

// Shutdown cancels running loops and waits for workers to exit or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.logger.Info("shutting down payment poll workers")
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("payment poll workers stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports the current backlog and its capacity.
func (d *Dispatcher) Stats() (queued, capacity, workers int) {
	return len(d.jobQueue), cap(d.jobQueue), d.maxWorkers
}
