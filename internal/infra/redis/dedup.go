package redis

import (
	"context"
	"time"

	"whatsapp-telegram-bridge/internal/domain/ports/repository"
)

var _ repository.Deduplicator = (*Deduplicator)(nil)

// Deduplicator records gateway deliveries so retries are not forwarded twice.
type Deduplicator struct {
	client RedisClient
}

func NewDeduplicator(client RedisClient) *Deduplicator {
	return &Deduplicator{client: client}
}

func (d *Deduplicator) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, key, time.Now().Unix(), ttl)
}
