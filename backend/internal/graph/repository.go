// Package graph stores the follow relation as FOLLOWS edges in Neo4j.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	"github.com/eranmadhuka/thinkflow/backend/pkg/logger"
)

// Repository handles all Neo4j database operations
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

var _ store.GraphStore = (*Repository)(nil)

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Get().Named("graph"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// EnsureSchema creates the uniqueness constraint on user nodes
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`, nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// AddFollow merges a single FOLLOWS edge, so both directions of the relation
// change in one write. Reports whether the edge was created.
func (r *Repository) AddFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	query := `
		MERGE (a:User {id: $followerID})
		MERGE (b:User {id: $followeeID})
		WITH a, b
		OPTIONAL MATCH (a)-[existing:FOLLOWS]->(b)
		WITH a, b, count(existing) AS existed
		MERGE (a)-[f:FOLLOWS]->(b)
		ON CREATE SET f.created_at = datetime()
		RETURN existed = 0 AS changed
	`
	changed, err := r.writeBool(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to add follow: %w", err)
	}
	if changed {
		r.logger.Debug("Follow edge created", zap.String("follower_id", followerID), zap.String("followee_id", followeeID))
	}
	return changed, nil
}

// RemoveFollow deletes the FOLLOWS edge if present
func (r *Repository) RemoveFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	query := `
		OPTIONAL MATCH (:User {id: $followerID})-[f:FOLLOWS]->(:User {id: $followeeID})
		WITH f, f IS NOT NULL AS present
		DELETE f
		RETURN sum(CASE WHEN present THEN 1 ELSE 0 END) > 0 AS changed
	`
	changed, err := r.writeBool(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to remove follow: %w", err)
	}
	return changed, nil
}

func (r *Repository) writeBool(ctx context.Context, query, followerID, followeeID string) (bool, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{
			"followerID": followerID,
			"followeeID": followeeID,
		})
		if err != nil {
			return false, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return false, err
		}
		return getBoolFromRecord(record, "changed"), nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// Followers returns the ids with an edge pointing at userID
func (r *Repository) Followers(ctx context.Context, userID string) ([]string, error) {
	return r.readIDs(ctx, `MATCH (:User {id: $userID})<-[:FOLLOWS]-(f:User) RETURN f.id AS id ORDER BY id`, userID)
}

// Following returns the ids userID points at
func (r *Repository) Following(ctx context.Context, userID string) ([]string, error) {
	return r.readIDs(ctx, `MATCH (:User {id: $userID})-[:FOLLOWS]->(f:User) RETURN f.id AS id ORDER BY id`, userID)
}

func (r *Repository) readIDs(ctx context.Context, query, userID string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"userID": userID})
		if err != nil {
			return nil, err
		}
		ids := []string{}
		for res.Next(ctx) {
			if id := getStringFromRecord(res.Record(), "id"); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read follow edges: %w", err)
	}
	return result.([]string), nil
}
