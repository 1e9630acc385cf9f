// Command seed fills the configured document store with demo users, posts,
// follows, comments and likes so the web client has something to render.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/content"
	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/engagement"
	"github.com/eranmadhuka/thinkflow/backend/internal/graph"
	"github.com/eranmadhuka/thinkflow/backend/internal/identity"
	"github.com/eranmadhuka/thinkflow/backend/internal/lock"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/social"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	"github.com/eranmadhuka/thinkflow/backend/internal/store/mongo"
	"github.com/eranmadhuka/thinkflow/backend/pkg/config"
	"github.com/eranmadhuka/thinkflow/backend/pkg/logger"
)

var demoUsers = []domain.ProviderIdentity{
	{Provider: domain.ProviderGoogle, ProviderID: "seed-ada", Name: "Ada Perera", Email: "ada@thinkflow.dev"},
	{Provider: domain.ProviderGoogle, ProviderID: "seed-nimal", Name: "Nimal Silva", Email: "nimal@thinkflow.dev"},
	{Provider: domain.ProviderFacebook, ProviderID: "seed-kavya", Name: "Kavya Fernando", Email: "kavya@thinkflow.dev"},
	{Provider: domain.ProviderFacebook, ProviderID: "seed-ravi", Name: "Ravi Jayasuriya", Email: "ravi@thinkflow.dev"},
}

var demoPosts = []domain.PostInput{
	{Title: "Hello ThinkFlow", Content: "First post on the new platform.", Tags: []string{"intro"}},
	{Title: "Notes on Go generics", Content: "Type parameters made our store helpers much smaller.", Tags: []string{"go", "programming"}},
	{Title: "Weekend hike", Content: "Ella Rock at sunrise was worth the early start.", Tags: []string{"travel"}},
}

func main() {
	force := flag.Bool("force", false, "Seed even if demo posts already exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...", zap.String("database", cfg.MongoDatabase))

	if cfg.StoreBackend != config.StoreMongo {
		log.Fatal("Seeding needs a persistent store", zap.String("store", cfg.StoreBackend))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := seed(ctx, cfg, *force, log); err != nil {
		log.Error("Seeding failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
	log.Info("Seeding complete")
}

func seed(ctx context.Context, cfg *config.Config, force bool, log *zap.Logger) error {
	docs, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTransactions)
	if err != nil {
		return err
	}
	defer docs.Close(context.Background())

	var graphStore store.GraphStore = docs
	if cfg.GraphBackend == config.GraphNeo4j {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
		if err != nil {
			return fmt.Errorf("create neo4j driver: %w", err)
		}
		repo := graph.NewRepository(driver)
		defer repo.Close(context.Background())
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		graphStore = repo
	}

	locker := lock.NewLocal()
	sink := notify.NewSink(docs, nil, log)
	resolver := identity.NewResolver(docs, locker, log)
	follows := social.NewService(docs, graphStore, sink, log)
	posts := content.NewService(docs, docs, docs, docs, sink, log)
	likes := engagement.NewService(docs, docs, docs, docs, locker, sink, log)

	// Create users
	users := make([]*domain.User, 0, len(demoUsers))
	for _, pi := range demoUsers {
		u, err := resolver.Resolve(ctx, pi)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", pi.Name, err)
		}
		users = append(users, u)
		log.Info("User ready", zap.String("user_id", u.ID), zap.String("name", u.Name))
	}

	existing, err := posts.PostsByAuthor(ctx, users[0].ID, domain.Window{})
	if err != nil {
		return err
	}
	if len(existing) > 0 && !force {
		log.Info("Demo posts already exist, skipping (use -force to add more)", zap.Int("posts", len(existing)))
		return nil
	}

	// Everyone follows the next user round the ring, and the first user
	for i, u := range users {
		next := users[(i+1)%len(users)]
		if err := follows.Follow(ctx, u.ID, next.ID); err != nil {
			return fmt.Errorf("follow: %w", err)
		}
		if i > 1 {
			if err := follows.Follow(ctx, u.ID, users[0].ID); err != nil {
				return fmt.Errorf("follow: %w", err)
			}
		}
	}

	// Each user writes the demo posts; the next user comments and likes them
	for i, u := range users {
		reader := users[(i+1)%len(users)]
		for _, in := range demoPosts {
			p, err := posts.CreatePost(ctx, u.ID, in)
			if err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			if _, err := posts.AddComment(ctx, reader.ID, p.ID, "Nice one, "+u.Name+"!"); err != nil {
				return fmt.Errorf("comment: %w", err)
			}
			if _, err := likes.Toggle(ctx, reader.ID, domain.PostTarget(p.ID)); err != nil {
				return fmt.Errorf("like: %w", err)
			}
		}
		log.Info("Seeded posts", zap.String("author", u.Name), zap.Int("count", len(demoPosts)))
	}
	return nil
}
