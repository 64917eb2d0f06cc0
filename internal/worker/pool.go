package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueComprobante = "jobs:comprobante"
	QueueEmail       = "jobs:email"

	// MaxAttempts is how many times a job runs before it goes to the DLQ.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// JobHandler processes the payload of one job. A returned error schedules a
// retry; permanent failures should be logged and return nil.
type JobHandler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// ComprobanteJobPayload is the job envelope sent to QueueComprobante.
type ComprobanteJobPayload struct {
	RemisionID string `json:"remission_id"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueComprobante asks for the delivery receipt of a closed remission.
func (d *Dispatcher) EnqueueComprobante(ctx context.Context, remisionID string) error {
	return d.enqueue(ctx, QueueComprobante, "comprobante", ComprobanteJobPayload{RemisionID: remisionID})
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// WorkerHandlers maps each queue to its handler.
type WorkerHandlers struct {
	Comprobante JobHandler
	Email       JobHandler
}

func (h *WorkerHandlers) forQueue(queue string) JobHandler {
	switch queue {
	case QueueComprobante:
		return h.Comprobante
	case QueueEmail:
		return h.Email
	default:
		return nil
	}
}

// Pool consumes both queues with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	handlers *WorkerHandlers
	backoff  func(attempt int) time.Duration
	wg       sync.WaitGroup
}

func NewPool(rdb *redis.Client, handlers *WorkerHandlers) *Pool {
	return &Pool{rdb: rdb, handlers: handlers, backoff: retryBackoff}
}

// retryBackoff: 1s, 2s, 4s …
func retryBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// Wait blocks until every worker returned after ctx was cancelled.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	queues := []string{QueueComprobante, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil || len(result) < 2 {
				continue // timeout or context cancelled
			}
			p.apply(ctx, result[0], p.handle(ctx, result[0], result[1]))
		}
	}
}

// outcome is what happens to a job after one run.
type outcome struct {
	job    Job
	retry  bool
	dead   bool
	reason string
}

// handle runs the job once and decides its fate; it never touches Redis.
func (p *Pool) handle(ctx context.Context, queue, raw string) outcome {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return outcome{job: Job{Type: "unknown", Payload: json.RawMessage(fmt.Sprintf("%q", raw))}, dead: true, reason: "invalid envelope: " + err.Error()}
	}
	h := p.handlers.forQueue(queue)
	if h == nil {
		return outcome{job: job, dead: true, reason: "no handler for queue " + queue}
	}

	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		log.Info().Str("type", job.Type).Str("queue", queue).Int("attempts", job.Attempts).Msg("job processed")
		return outcome{job: job}
	}
	if job.Attempts >= MaxAttempts {
		return outcome{job: job, dead: true, reason: err.Error()}
	}
	log.Warn().Err(err).Str("type", job.Type).Str("queue", queue).Int("attempts", job.Attempts).Msg("job failed, retrying")
	return outcome{job: job, retry: true, reason: err.Error()}
}

func (p *Pool) apply(ctx context.Context, queue string, o outcome) {
	switch {
	case o.dead:
		SendToDLQ(ctx, p.rdb, queue, o.job.Type, o.job.Payload, o.reason, o.job.Attempts)
	case o.retry:
		select {
		case <-ctx.Done():
		case <-time.After(p.backoff(o.job.Attempts)):
		}
		// Fresh context: on shutdown the job must still go back to the queue.
		pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := push(pctx, p.rdb, queue, o.job); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("failed to requeue job")
		}
	}
}
