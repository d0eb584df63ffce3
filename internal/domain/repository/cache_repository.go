package repository

import (
	"context"
	"time"
)

// ResponseCache - кэш ответов провайдера с TTL
type ResponseCache interface {
	// Get возвращает значение; nil, nil при промахе
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет значение
	Delete(ctx context.Context, key string) error

	// Len возвращает количество записей
	Len(ctx context.Context) (int, error)
}

// Sweeper - кэш с явной очисткой просроченных записей
type Sweeper interface {
	Sweep() int
}
