package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/A91A1214/Build-Payment-Gateway/app/factory"
)

// blockInterval bounds each blocking pop so the consumer periodically
// promotes due delayed jobs and observes context cancellation.
const blockInterval = time.Second

// Redis is a Queue backed by four Redis structures per queue name:
//
//	waiting  list  jobs ready for delivery
//	active   list  jobs claimed by a consumer but not yet acknowledged
//	delayed  zset  nacked jobs scheduled for redelivery (score = ready time)
//	dead     list  jobs that exhausted their attempt budget
//
// The waiting->active move happens via BRPOPLPUSH, so a claimed job survives
// a consumer crash and can be requeued on restart.
type Redis struct {
	client *redis.Client
	name   string
	policy BackoffPolicy
	logger logrus.FieldLogger

	// now is swappable in tests to drive delayed-job promotion.
	now func() time.Time
}

func NewRedis(client *redis.Client, name string, policy BackoffPolicy) *Redis {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Redis{
		client: client,
		name:   name,
		policy: policy,
		logger: factory.NewModuleLogger("queue").WithField("queue", name),
		now:    time.Now,
	}
}

func (q *Redis) Enqueue(ctx context.Context, name string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	job := Job{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    body,
		Attempts:   0,
		EnqueuedAt: q.now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return q.client.LPush(ctx, q.key("waiting"), string(raw)).Err()
}

func (q *Redis) Consume(ctx context.Context) (*Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := q.promoteDelayed(ctx); err != nil {
			return nil, err
		}

		raw, err := q.client.BRPopLPush(ctx, q.key("waiting"), q.key("active"), blockInterval).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			// Unparseable envelope: dead-letter it directly, there is no
			// attempt count to honor.
			q.logger.WithError(err).Error("Discarding unparseable job envelope to dead letters")
			pipe := q.client.TxPipeline()
			pipe.LRem(ctx, q.key("active"), 1, raw)
			pipe.LPush(ctx, q.key("dead"), raw)
			if _, err := pipe.Exec(ctx); err != nil {
				return nil, err
			}
			continue
		}
		job.Attempts++

		return &Delivery{Job: job, raw: raw}, nil
	}
}

func (q *Redis) Ack(ctx context.Context, delivery *Delivery) error {
	return q.client.LRem(ctx, q.key("active"), 1, delivery.raw).Err()
}

// Nack releases a failed delivery. The job is scheduled for redelivery after
// the policy's backoff delay, or dead-lettered once its attempt budget is
// exhausted.
func (q *Redis) Nack(ctx context.Context, delivery *Delivery) error {
	job := delivery.Job
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.key("active"), 1, delivery.raw)

	if job.Attempts >= q.policy.MaxAttempts {
		q.logger.WithFields(logrus.Fields{
			"job":      job.Name,
			"job_id":   job.ID,
			"attempts": job.Attempts,
		}).Warn("Job exhausted attempts, moving to dead letters")
		pipe.LPush(ctx, q.key("dead"), string(raw))
	} else {
		readyAt := q.now().Add(q.policy.NextDelay(job.Attempts))
		pipe.ZAdd(ctx, q.key("delayed"), &redis.Z{
			Score:  float64(readyAt.UnixMilli()),
			Member: string(raw),
		})
	}

	_, err = pipe.Exec(ctx)
	return err
}

// RequeueOrphans moves jobs left on the active list by a crashed consumer
// back to waiting. Workers call it once on startup; redelivered jobs rely on
// consumer idempotency, as everywhere else in the pipeline.
func (q *Redis) RequeueOrphans(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.client.RPopLPush(ctx, q.key("active"), q.key("waiting")).Result()
		if err == redis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

// DeadLetters returns the jobs that exhausted their attempt budget.
func (q *Redis) DeadLetters(ctx context.Context) ([]Job, error) {
	raws, err := q.client.LRange(ctx, q.key("dead"), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (q *Redis) promoteDelayed(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, q.key("delayed"), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return err
	}

	for _, raw := range due {
		// ZRem returning 1 means this consumer owns the promotion; a
		// concurrent consumer racing on the same member loses cleanly.
		removed, err := q.client.ZRem(ctx, q.key("delayed"), raw).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.key("waiting"), raw).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (q *Redis) key(part string) string {
	return fmt.Sprintf("queue:%s:%s", q.name, part)
}
