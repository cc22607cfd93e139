package redis

import (
	"context"
	"encoding/json"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

func (r *RedisEventSubscriber) SubscribeToLotEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := r.client.Subscribe(ctx, lotEventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("subscribed to lot events")

	for {
		select {
		case msg := <-ch:
			var event domain.LotEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Error("failed to decode lot event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(&event); err != nil {
				r.log.Error("lot event handler failed", "lot_id", event.LotID, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("lot event subscriber stopped")
			return ctx.Err()
		}
	}
}
