// Package mongo implements store.Store on MongoDB. Each record kind is a
// collection whose _id is the guild snowflake.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/guild"
	promstore "github.com/toastnco/prometheus/store"
	"github.com/toastnco/prometheus/welcome"
)

// Collection name constants.
const (
	colServers = "servers"
	colWelcome = "welcome"
)

// compile-time interface check
var _ promstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New wraps a connected client. The store takes ownership and disconnects it
// on Close.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Open connects to uri and selects database.
func Open(uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("prometheus/mongo: connect: %w", err)
	}
	return New(client, database), nil
}

// Database returns the selected database for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates the secondary indexes. The _id indexes exist implicitly.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("prometheus/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==================== Guild Store ====================

func (s *Store) GetGuild(ctx context.Context, guildID uint64) (*guild.Settings, error) {
	var m serverModel
	err := s.db.Collection(colServers).
		FindOne(ctx, bson.M{"_id": int64(guildID)}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, prometheus.ErrGuildNotFound
		}
		return nil, fmt.Errorf("prometheus/mongo: get guild: %w", err)
	}
	return fromServerModel(&m), nil
}

func (s *Store) CreateGuild(ctx context.Context, g *guild.Settings) error {
	g.Stamp()
	if _, err := s.db.Collection(colServers).InsertOne(ctx, toServerModel(g)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return prometheus.ErrAlreadyExists
		}
		return fmt.Errorf("prometheus/mongo: create guild: %w", err)
	}
	return nil
}

func (s *Store) UpdateGuild(ctx context.Context, g *guild.Settings) error {
	g.Stamp()
	m := toServerModel(g)
	_, err := s.db.Collection(colServers).UpdateOne(ctx,
		bson.M{"_id": m.ID},
		bson.M{
			"$set": bson.M{
				"beta_program": m.BetaProgram,
				"updated_at":   m.UpdatedAt,
			},
			"$setOnInsert": bson.M{"created_at": m.CreatedAt},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("prometheus/mongo: update guild: %w", err)
	}
	return nil
}

// ==================== Welcome Store ====================

func (s *Store) GetWelcome(ctx context.Context, guildID uint64) (*welcome.Settings, error) {
	var m welcomeModel
	err := s.db.Collection(colWelcome).
		FindOne(ctx, bson.M{"_id": int64(guildID)}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, prometheus.ErrWelcomeNotFound
		}
		return nil, fmt.Errorf("prometheus/mongo: get welcome: %w", err)
	}
	return fromWelcomeModel(&m), nil
}

func (s *Store) CreateWelcome(ctx context.Context, w *welcome.Settings) error {
	w.Stamp()
	if _, err := s.db.Collection(colWelcome).InsertOne(ctx, toWelcomeModel(w)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return prometheus.ErrAlreadyExists
		}
		return fmt.Errorf("prometheus/mongo: create welcome: %w", err)
	}
	return nil
}

func (s *Store) UpdateWelcome(ctx context.Context, w *welcome.Settings) error {
	w.Stamp()
	m := toWelcomeModel(w)
	_, err := s.db.Collection(colWelcome).UpdateOne(ctx,
		bson.M{"_id": m.GuildID},
		bson.M{
			"$set": bson.M{
				"channel_id": m.ChannelID,
				"updated_at": m.UpdatedAt,
			},
			"$setOnInsert": bson.M{"created_at": m.CreatedAt},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("prometheus/mongo: update welcome: %w", err)
	}
	return nil
}

func (s *Store) DeleteWelcome(ctx context.Context, guildID uint64) error {
	res, err := s.db.Collection(colWelcome).DeleteOne(ctx, bson.M{"_id": int64(guildID)})
	if err != nil {
		return fmt.Errorf("prometheus/mongo: delete welcome: %w", err)
	}
	if res.DeletedCount == 0 {
		return prometheus.ErrWelcomeNotFound
	}
	return nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the secondary index definitions per collection.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colServers: {
			{Keys: bson.D{{Key: "beta_program", Value: 1}}},
		},
		colWelcome: {
			{Keys: bson.D{{Key: "channel_id", Value: 1}}},
		},
	}
}
