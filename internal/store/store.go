package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Store owns the Mongo client and the mirror database handle. The client
// pools connections internally and is safe for concurrent use; Store adds
// no locking of its own.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to Mongo and verifies the deployment is reachable before
// returning. Callers must Close the store when done.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

// Close releases the client's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database exposes the underlying database handle for operations the
// collection wrappers do not cover.
func (s *Store) Database() *mongo.Database {
	return s.db
}
