// Package mongo provides a MongoDB-backed ledger store: one document
// per row, ordered by a per-ledger sequence number.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smorales/jobharvester/internal/ledger"
)

const opTimeout = 10 * time.Second

// Config holds the MongoDB connection parameters.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store implements ledger.Store on a single collection.
type Store struct {
	client *mongo.Client
	rows   *mongo.Collection
}

type rowDoc struct {
	Ledger string   `bson:"ledger"`
	Seq    int64    `bson:"seq"`
	Cells  []string `bson:"cells"`
}

// NewStore connects to MongoDB, pings it, and ensures the ordering
// index exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, fmt.Errorf("ledger.uri and ledger.database are required")
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "ledger_rows"
	}

	connCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	client, err := mongo.Connect(connCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connCtx, nil); err != nil {
		_ = client.Disconnect(connCtx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		rows:   client.Database(cfg.Database).Collection(collection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	idxCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.rows.Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "ledger", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create ledger index: %w", err)
	}
	return nil
}

// ReadAllRows returns the ledger's rows in sequence order.
func (s *Store) ReadAllRows(ctx context.Context, name string) ([]ledger.Row, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.rows.Find(opCtx, bson.M{"ledger": name}, opts)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", name, err)
	}
	defer cursor.Close(opCtx)

	var out []ledger.Row
	for cursor.Next(opCtx) {
		var doc rowDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode ledger %s row: %w", name, err)
		}
		out = append(out, ledger.Row(doc.Cells))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger %s: %w", name, err)
	}
	return out, nil
}

// AppendRows appends rows after the ledger's current highest sequence.
// Concurrent appenders can interleave; the ledgers carry no
// transactional guarantee by design.
func (s *Store) AppendRows(ctx context.Context, name string, rows []ledger.Row) error {
	if len(rows) == 0 {
		return nil
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	next, err := s.nextSeq(opCtx, name)
	if err != nil {
		return err
	}
	docs := make([]any, len(rows))
	for i, row := range rows {
		docs[i] = rowDoc{Ledger: name, Seq: next + int64(i), Cells: row}
	}
	if _, err := s.rows.InsertMany(opCtx, docs); err != nil {
		return fmt.Errorf("append to ledger %s: %w", name, err)
	}
	return nil
}

func (s *Store) nextSeq(ctx context.Context, name string) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})
	var last rowDoc
	err := s.rows.FindOne(ctx, bson.M{"ledger": name}, opts).Decode(&last)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find ledger %s tail: %w", name, err)
	}
	return last.Seq + 1, nil
}

// Clear removes every row of the ledger.
func (s *Store) Clear(ctx context.Context, name string) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := s.rows.DeleteMany(opCtx, bson.M{"ledger": name}); err != nil {
		return fmt.Errorf("clear ledger %s: %w", name, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
