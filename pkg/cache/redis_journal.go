package cache

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sheetdb/pkg/config"
	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/logger"
)

// RedisJournal keeps one hash field per store under a single key, so
// several processes can share the journal.
type RedisJournal struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisJournal connects to the server named by cfg and verifies it answers.
func NewRedisJournal(ctx context.Context, cfg config.JournalConfig, l *zap.Logger) (*RedisJournal, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to connect to redis").
			WithDetail("addr", cfg.RedisAddr)
	}
	return NewRedisJournalWithClient(client, cfg.RedisKey, l), nil
}

// NewRedisJournalWithClient wraps an existing client.
func NewRedisJournalWithClient(client *redis.Client, key string, l *zap.Logger) *RedisJournal {
	if key == "" {
		key = "sheetdb:sync_journal"
	}
	return &RedisJournal{
		client: client,
		key:    key,
		logger: logger.OrGlobal(l).With(zap.String("component", "redis_journal")),
	}
}

func (r *RedisJournal) Get(ctx context.Context, storeID string) (SyncEntry, bool, error) {
	raw, err := r.client.HGet(ctx, r.key, storeID).Result()
	if err == redis.Nil {
		return SyncEntry{}, false, nil
	}
	if err != nil {
		return SyncEntry{}, false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read sync journal").
			WithDetail("store", storeID)
	}

	var e SyncEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return SyncEntry{}, false, errors.Wrap(err, errors.ErrorTypeStorage, "sync journal entry is corrupt").
			WithDetail("store", storeID)
	}
	return e, true, nil
}

func (r *RedisJournal) Mark(ctx context.Context, entry SyncEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to encode sync journal entry")
	}
	if err := r.client.HSet(ctx, r.key, entry.StoreID, data).Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write sync journal").
			WithDetail("store", entry.StoreID)
	}
	return nil
}

// Invalidate removes the store's field. If the key holds something other
// than a hash, the key is deleted outright.
func (r *RedisJournal) Invalidate(ctx context.Context, storeID string) error {
	err := r.client.HDel(ctx, r.key, storeID).Err()
	if err == nil {
		return nil
	}
	if !strings.HasPrefix(err.Error(), "WRONGTYPE") {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to invalidate sync journal").
			WithDetail("store", storeID)
	}

	r.logger.Warn("journal key is not a hash, wiping it", zap.String("key", r.key), zap.Error(err))
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to wipe sync journal").
			WithDetail("key", r.key)
	}
	return nil
}

func (r *RedisJournal) Close() error {
	return r.client.Close()
}
