package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/graph"
	"github.com/eranmadhuka/thinkflow/backend/internal/lock"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/push"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	"github.com/eranmadhuka/thinkflow/backend/internal/store/memory"
	"github.com/eranmadhuka/thinkflow/backend/internal/store/mongo"
	"github.com/eranmadhuka/thinkflow/backend/pkg/config"
)

const (
	connectTimeout = 10 * time.Second
	lockTTL        = 5 * time.Second
)

// openStore connects the document store named by STORE_BACKEND
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	default:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		s, err := mongo.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTransactions)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase), zap.Bool("transactions", cfg.MongoTransactions))
		return s, nil
	}
}

// openGraph returns the follow graph backend; by default the document store keeps it
func openGraph(ctx context.Context, cfg *config.Config, docs store.Store, log *zap.Logger) (store.GraphStore, func(context.Context) error, error) {
	if cfg.GraphBackend != config.GraphNeo4j {
		return docs, func(context.Context) error { return nil }, nil
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(connectCtx); err != nil {
		_ = driver.Close(context.Background())
		return nil, nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	repo := graph.NewRepository(driver)
	if err := repo.EnsureSchema(connectCtx); err != nil {
		_ = repo.Close(context.Background())
		return nil, nil, err
	}
	log.Info("Follow graph stored in Neo4j", zap.String("uri", cfg.Neo4jURI))
	return repo, repo.Close, nil
}

// openLocker uses Redis when configured so toggles serialize across instances
func openLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("instrument redis: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info("Using Redis locks", zap.String("addr", cfg.RedisAddr))
	return lock.NewRedis(client, lockTTL), func() {
		if err := client.Close(); err != nil {
			log.Warn("Failed to close redis", zap.Error(err))
		}
	}, nil
}

// openPusher fans notifications out over NATS when configured, else delivers locally
func openPusher(cfg *config.Config, hub *push.Hub, log *zap.Logger) (notify.Pusher, func(), error) {
	if cfg.NatsURL == "" {
		return hub, func() {}, nil
	}

	nc, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}

	bridge := push.NewBridge(nc, hub, log)
	if err := bridge.Start(); err != nil {
		nc.Close()
		return nil, nil, err
	}

	log.Info("Push fan-out over NATS", zap.String("url", cfg.NatsURL))
	return bridge, func() {
		if err := bridge.Stop(); err != nil {
			log.Warn("Failed to stop NATS bridge", zap.Error(err))
		}
		nc.Drain()
	}, nil
}

// newHTTPHandler wraps the router with CORS and tracing
func newHTTPHandler(router http.Handler, cfg *config.Config) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return otelhttp.NewHandler(c.Handler(router), cfg.ServiceName)
}

// originChecker accepts websocket upgrades from the configured origins; "*" accepts any
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
