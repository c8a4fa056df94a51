package senders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fiffu/isitup/lib/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type redisSender struct {
	base
	client *redis.Client
}

func newRedisSender(lc fx.Lifecycle, b base) *redisSender {
	client := redis.NewClient(&redis.Options{
		Addr:     b.cfg.Redis.Address,
		Password: b.cfg.Redis.Password,
		DB:       b.cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping failed: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return &redisSender{b, client}
}

func (s *redisSender) Send(ctx context.Context, evt models.Event) error {
	b, err := json.Marshal(payloadOf(evt))
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.cfg.Redis.Channel, b).Err()
}
