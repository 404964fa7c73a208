package events

import (
	"context"
	"encoding/json"
	"time"

	"fitclass/internal/logger"
	"fitclass/internal/metrics"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher pushes events onto a Redis list. Consumers BRPOP from the
// other end, so the list is FIFO.
type RedisPublisher struct {
	redis *redis.Client
	queue string
}

func NewRedisPublisher(client *redis.Client, queue string) *RedisPublisher {
	return &RedisPublisher{redis: client, queue: queue}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	length, err := p.redis.LPush(ctx, p.queue, data).Result()
	if err != nil {
		metrics.RecordEventPublished("redis", "failed")
		logger.Errorf("Failed to queue %s for booking %s: %v", e.Type, e.BookingID, err)
		return err
	}

	metrics.RecordEventPublished("redis", "success")
	metrics.RecordEventQueueLength(p.queue, length)
	logger.Debug("event queued", "type", e.Type, "booking_id", e.BookingID)
	return nil
}

// SampleQueueLength reports the queue backlog to the queue length gauge.
// Consumers drain the list between publishes, so it is also sampled on a
// schedule.
func (p *RedisPublisher) SampleQueueLength(ctx context.Context) error {
	length, err := p.redis.LLen(ctx, p.queue).Result()
	if err != nil {
		return err
	}
	metrics.RecordEventQueueLength(p.queue, length)
	return nil
}

// Register samples the queue length every interval.
func (p *RedisPublisher) Register(scheduler gocron.Scheduler, interval time.Duration) (gocron.Job, error) {
	return scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := p.SampleQueueLength(context.Background()); err != nil {
				logger.Warn("event queue length sample failed", "queue", p.queue, "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("event-queue-length"),
	)
}

func (p *RedisPublisher) Close() error {
	return p.redis.Close()
}
