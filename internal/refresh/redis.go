package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const DefaultChannel = "stacks:refresh"

// Redis publishes signals on a pub/sub channel so views in other processes can
// refetch.
type Redis struct {
	client  *redis.Client
	channel string
	logger  log.FieldLogger
}

func NewRedis(redisURL, channel string, logger log.FieldLogger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisWithClient(redis.NewClient(opts), channel, logger), nil
}

func NewRedisWithClient(client *redis.Client, channel string, logger log.FieldLogger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Redis{client: client, channel: channel, logger: logger}
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Notify(ctx context.Context, sig Signal) error {
	b, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, b).Err()
}

// Listen forwards signals from the channel into local until ctx is done,
// resubscribing when the pub/sub connection drops.
func (r *Redis) Listen(ctx context.Context, local Notifier) {
	for {
		sub := r.client.Subscribe(ctx, r.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var sig Signal
				if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
					r.logger.WithError(err).Warn("refresh: unable to parse signal")
					continue
				}
				if err := local.Notify(ctx, sig); err != nil {
					r.logger.WithError(err).Warn("refresh: local notify failed")
				}
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("refresh: pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
