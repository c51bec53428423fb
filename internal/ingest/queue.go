package ingest

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/rtyshyk/telegram-rag/internal/errors"
	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// TaskTypeProcessMessage is the asynq task type for one §4.6 unit of work.
const TaskTypeProcessMessage = "ingest:process_message"

// messagePayload is the asynq task payload: the message plus whether it
// arrived as an edit (carried through for logging only).
type messagePayload struct {
	Message types.Message `json:"message"`
	IsEdit  bool          `json:"is_edit"`
}

// Queue wraps an asynq.Client as the bounded work queue feeding the daemon's
// worker pool.
type Queue struct {
	client *asynq.Client
}

// NewQueue connects to the given Redis address.
func NewQueue(redisAddr string) *Queue {
	return &Queue{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// Close releases the underlying Redis connection.
func (q *Queue) Close() error { return q.client.Close() }

// Enqueue submits one message for asynchronous processing.
func (q *Queue) Enqueue(ctx context.Context, msg types.Message, isEdit bool) error {
	payload, err := json.Marshal(messagePayload{Message: msg, IsEdit: isEdit})
	if err != nil {
		return errors.Permanent("enqueue_marshal_failed", "failed to marshal ingest task payload", err)
	}
	task := asynq.NewTask(TaskTypeProcessMessage, payload)
	_, err = q.client.EnqueueContext(ctx, task)
	if err != nil {
		return errors.Transient("enqueue_failed", "failed to enqueue ingest task", err)
	}
	return nil
}

// Worker runs an asynq.Server bound to the same Redis broker, processing
// tasks with worker_concurrency workers (§5).
type Worker struct {
	redisAddr   string
	concurrency int
	proc        *Processor
}

// NewWorker builds the worker pool; concurrency is daemon_worker_concurrency.
func NewWorker(redisAddr string, concurrency int, proc *Processor) *Worker {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &Worker{redisAddr: redisAddr, concurrency: concurrency, proc: proc}
}

// Run starts the asynq server and blocks until ctx is cancelled, at which
// point it waits for in-flight tasks to drain before returning.
func (w *Worker) Run(ctx context.Context) error {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: w.redisAddr},
		asynq.Config{Concurrency: w.concurrency},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeProcessMessage, w.handleProcessMessage)

	if err := srv.Start(mux); err != nil {
		return errors.Transient("worker_start_failed", "failed to start asynq worker server", err)
	}

	<-ctx.Done()
	srv.Shutdown()
	return nil
}

func (w *Worker) handleProcessMessage(ctx context.Context, task *asynq.Task) error {
	var payload messagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warn(ctx, "ingest worker: malformed task payload", "error", err)
		return nil // permanently malformed, do not retry
	}
	if err := w.proc.ProcessMessage(ctx, payload.Message, payload.IsEdit); err != nil {
		logger.Warn(ctx, "ingest worker: process message failed", "chat_id", payload.Message.ChatID,
			"message_id", payload.Message.MessageID, "error", err)
		var appErr *errors.AppError
		if errors.As(err, &appErr) && appErr.Kind == errors.KindTransient {
			return err // asynq retries transient failures
		}
		return nil
	}
	return nil
}
