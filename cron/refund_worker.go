package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"rentflow/config"
	"rentflow/models"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/refund"
)

const TypeRefundCompensate = "refund:compensate"

// RefundQueue enqueues compensating refund tasks. It satisfies the flow
// controller's CompensationQueue so a race loss after payment is promised a
// refund through a durable queue, not an in-memory flag.
type RefundQueue struct {
	client *asynq.Client
}

// NewRefundQueue builds the enqueue side of the refund pipeline.
func NewRefundQueue() *RefundQueue {
	return &RefundQueue{
		client: asynq.NewClient(refundRedisOpts()),
	}
}

// EnqueueRefund queues one compensation task. asynq retries delivery with its
// own backoff if the refund keeps failing.
func (q *RefundQueue) EnqueueRefund(ctx context.Context, payload models.RefundPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeRefundCompensate, body)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(10),
		asynq.Timeout(30*time.Second),
		asynq.TaskID(payload.TaskID),
	)
	return err
}

// InitRefundWorker runs the refund worker in background.
func InitRefundWorker() {
	srv := asynq.NewServer(
		refundRedisOpts(),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRefundCompensate, handleRefundTask)

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[RefundWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[RefundWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[RefundWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleRefundTask(ctx context.Context, task *asynq.Task) error {
	var p models.RefundPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		log.Printf("[RefundHandler] Invalid payload: %v", err)
		return err
	}

	if p.PaymentReference == "" {
		// No charge reference means the submission outcome was never seen;
		// there may be nothing to refund. Park it for support review instead
		// of retrying forever.
		log.Printf("[RefundHandler] Task %s has no payment reference (reason: %s), flagged for manual review", p.TaskID, p.Reason)
		return nil
	}

	log.Printf("[RefundHandler] Refunding %s %.2f on %s: %s", p.Currency, p.Amount, p.PaymentReference, p.Reason)

	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(p.PaymentReference),
	}
	if _, err := refund.New(params); err != nil {
		log.Printf("[RefundHandler] Refund failed, will retry: %v", err)
		return err
	}

	log.Printf("[RefundHandler] Refund issued for %s", p.PaymentReference)
	return nil
}

func refundRedisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisRefundQueueDB,
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisRefundQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[RefundWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
