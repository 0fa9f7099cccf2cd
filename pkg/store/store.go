// Package store persists discovery snapshots and diagram descriptions in
// MongoDB. The cache holds hot intermediate results with TTLs; the store is
// the durable record of what a discovery run produced, so past runs can be
// listed and rediagrammed without refetching inventory.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cloudplot/cloudplot/pkg/diagram"
	"github.com/cloudplot/cloudplot/pkg/errors"
	"github.com/cloudplot/cloudplot/pkg/resgraph"
)

const (
	snapshotCollection = "snapshots"
	diagramCollection  = "diagrams"

	// connectTimeout bounds the initial ping.
	connectTimeout = 5 * time.Second
)

// Snapshot is one persisted discovery run.
type Snapshot struct {
	ID           string              `bson:"_id" json:"id"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	Scopes       []string            `bson:"scopes,omitempty" json:"scopes,omitempty"`
	GraphHash    string              `bson:"graph_hash" json:"graph_hash"`
	Graph        resgraph.Serialized `bson:"graph" json:"graph"`
	FailedScopes []string            `bson:"failed_scopes,omitempty" json:"failed_scopes,omitempty"`
}

// DiagramRecord is one persisted diagram description. Its id is the
// diagram's content id, so saving the same diagram twice is a no-op upsert.
type DiagramRecord struct {
	ID          string              `bson:"_id" json:"id"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	GraphHash   string              `bson:"graph_hash,omitempty" json:"graph_hash,omitempty"`
	Algorithm   string              `bson:"algorithm,omitempty" json:"algorithm,omitempty"`
	Theme       string              `bson:"theme,omitempty" json:"theme,omitempty"`
	Description diagram.Description `bson:"description" json:"description"`
}

// Store wraps the MongoDB client and collections.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB, verifies the connection, and returns a store.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to mongodb")
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping mongodb")
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

// SaveSnapshot persists a discovery run and returns its generated id.
func (s *Store) SaveSnapshot(ctx context.Context, g *resgraph.Graph, graphHash string, scopes, failedScopes []string) (string, error) {
	snap := Snapshot{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Scopes:       scopes,
		GraphHash:    graphHash,
		Graph:        resgraph.FromGraph(g),
		FailedScopes: failedScopes,
	}
	if _, err := s.db.Collection(snapshotCollection).InsertOne(ctx, snap); err != nil {
		return "", errors.Wrap(errors.ErrCodeStore, err, "insert snapshot")
	}
	return snap.ID, nil
}

// GraphFromSnapshot rebuilds the in-memory graph from a persisted snapshot.
func GraphFromSnapshot(snap Snapshot) (*resgraph.Graph, error) {
	g, err := resgraph.ToGraph(snap.Graph)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode snapshot graph")
	}
	return g, nil
}

// Snapshot loads one discovery run by id.
func (s *Store) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	if err := errors.ValidateSnapshotID(id); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	err := s.db.Collection(snapshotCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&snap)
	if err == mongo.ErrNoDocuments {
		return Snapshot{}, errors.New(errors.ErrCodeSnapshotNotFound, "snapshot not found: %s", id)
	}
	if err != nil {
		return Snapshot{}, errors.Wrap(errors.ErrCodeStore, err, "load snapshot %s", id)
	}
	return snap, nil
}

// ListSnapshots returns the most recent snapshots, newest first, without
// their graphs (the graph field can be large).
func (s *Store) ListSnapshots(ctx context.Context, limit int64) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.M{"graph": 0})

	cur, err := s.db.Collection(snapshotCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list snapshots")
	}
	defer cur.Close(ctx)

	var snaps []Snapshot
	if err := cur.All(ctx, &snaps); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode snapshots")
	}
	return snaps, nil
}

// SaveDiagram persists a diagram description keyed by its content id.
// Saving an identical diagram again replaces the existing document.
func (s *Store) SaveDiagram(ctx context.Context, d diagram.Description, graphHash, algorithm, themeName string) error {
	rec := DiagramRecord{
		ID:          d.ID,
		CreatedAt:   time.Now().UTC(),
		GraphHash:   graphHash,
		Algorithm:   algorithm,
		Theme:       themeName,
		Description: d,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(diagramCollection).ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "upsert diagram %s", rec.ID)
	}
	return nil
}

// Diagram loads one diagram description by content id.
func (s *Store) Diagram(ctx context.Context, id string) (DiagramRecord, error) {
	if err := errors.ValidateSnapshotID(id); err != nil {
		return DiagramRecord{}, err
	}

	var rec DiagramRecord
	err := s.db.Collection(diagramCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return DiagramRecord{}, errors.New(errors.ErrCodeDiagramNotFound, "diagram not found: %s", id)
	}
	if err != nil {
		return DiagramRecord{}, errors.Wrap(errors.ErrCodeStore, err, "load diagram %s", id)
	}
	return rec, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
