// Package bootstrap assembles the runtime graph from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/lysandra-ai-platform/internal/config"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/internal/store/dynamo"
	"github.com/wolfman30/lysandra-ai-platform/internal/store/postgres"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; knowledge cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildStore opens the configured document store. Missing credentials or a
// failed connection yield store.Unavailable, so the webhook still answers
// with the apology instead of the process refusing to start.
func BuildStore(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (store.Store, string) {
	if logger == nil {
		logger = logging.Default()
	}
	backend := cfg.ResolvedStoreBackend()
	switch backend {
	case appconfig.StoreBackendPostgres:
		st, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres store unavailable", "error", err)
			return store.Unavailable{}, "unavailable"
		}
		return st, backend
	case appconfig.StoreBackendDynamoDB:
		client := dynamodb.NewFromConfig(awsCfg)
		return dynamo.New(client, dynamo.TablesWithPrefix(cfg.DynamoTablePrefix), logger), backend
	case appconfig.StoreBackendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), backend
	default:
		logger.Error("no document store credentials configured")
		return store.Unavailable{}, "unavailable"
	}
}

func openPostgres(ctx context.Context, dsn string) (store.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return postgres.New(pool), nil
}
