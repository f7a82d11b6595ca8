package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type Job struct {
	ID      int64
	Message Message
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("mail worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("mail worker processing job", "worker_id", w.ID, "job_id", job.ID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("mail worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	MaxWorkers   int
	JobQueueSize int
	SendTimeout  time.Duration
}

// Pool delivers queued messages on a fixed set of workers. Enqueue never
// blocks the caller; a full queue drops the message.
type Pool struct {
	sender      Sender
	logger      *slog.Logger
	sendTimeout time.Duration

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    atomic.Int64
	startOnce  sync.Once
	stopOnce   sync.Once

	mu      sync.Mutex
	nextID  int64
	stopped bool
}

func NewPool(config Config, sender Sender, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	sendTimeout := config.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	p := &Pool{
		sender:      sender,
		logger:      logger,
		sendTimeout: sendTimeout,
		maxWorkers:  maxWorkers,
		jobQueue:    make(chan Job, jobQueueSize),
		workerPool:  make(chan chan Job, maxWorkers),
		ctx:         ctx,
		cancel:      cancel,
	}

	p.start()

	return p
}

func (p *Pool) start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			worker := NewWorker(i, p.workerPool, p.logger)
			worker.Start(p.ctx, &p.wg, p.process)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("mail worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			if !p.handOff(job) {
				p.stopDispatch(1)
				return
			}
		case <-p.ctx.Done():
			p.stopDispatch(0)
			return
		}
	}
}

// handOff waits for an idle worker; it reports false when the pool stops first.
func (p *Pool) handOff(job Job) bool {
	select {
	case jobChannel := <-p.workerPool:
		select {
		case jobChannel <- job:
			return true
		case <-p.ctx.Done():
			return false
		}
	case <-p.ctx.Done():
		return false
	}
}

// stopDispatch discards whatever is still queued, plus held jobs taken off
// the queue but never handed to a worker. Enqueue is closed by then.
func (p *Pool) stopDispatch(held int) {
	dropped := held
	for drained := false; !drained; {
		select {
		case <-p.jobQueue:
			dropped++
		default:
			drained = true
		}
	}

	if dropped > 0 {
		p.pending.Add(-int64(dropped))
		p.logger.Warn("mail pool stopped, dropping queued messages", "dropped", dropped)
	}
	p.logger.Info("mail dispatcher shutting down")
}

// Enqueue schedules msg for delivery and returns immediately.
func (p *Pool) Enqueue(msg Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return fmt.Errorf("mail pool stopped")
	}

	p.nextID++
	job := Job{ID: p.nextID, Message: msg}

	p.pending.Add(1)
	select {
	case p.jobQueue <- job:
		p.logger.Debug("mail job queued", "job_id", job.ID, "to", msg.To, "queue_length", len(p.jobQueue))
		return nil
	default:
		p.pending.Add(-1)
		p.logger.Warn("mail queue full, dropping message",
			"to", msg.To,
			"subject", msg.Subject,
			"queue_capacity", cap(p.jobQueue))
		return ErrQueueFull
	}
}

func (p *Pool) process(job Job) {
	defer p.pending.Add(-1)

	ctx, cancel := context.WithTimeout(p.ctx, p.sendTimeout)
	defer cancel()

	if err := p.sender.Send(ctx, job.Message); err != nil {
		p.logger.Error("mail delivery failed",
			"job_id", job.ID,
			"to", job.Message.To,
			"error", err)
	}
}

// Drain waits until every queued message has been handed to the sender, or
// until ctx is done.
func (p *Pool) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for p.pending.Load() > 0 {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Pending reports messages accepted but not yet handed to the sender.
func (p *Pool) Pending() int64 {
	return p.pending.Load()
}

func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down mail worker pool")
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()

		p.cancel()
		p.wg.Wait()
		p.logger.Info("mail worker pool shutdown complete")
	})
}
