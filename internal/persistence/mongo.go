package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spec-kit/petcare-identity/internal/config"
	"github.com/spec-kit/petcare-identity/internal/domain"
)

const (
	mongoConnectTimeout = 10 * time.Second
	gridFSRefPrefix     = "gridfs:"
)

// Mongo wraps the client and database backing the document store.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongo connects when a URI is configured; otherwise it returns a disabled handle.
func NewMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Mongo, error) {
	if cfg.URI == "" {
		logger.Warn("MONGO_URI not provided; registration document uploads are disabled")
		return &Mongo{}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to mongo", zap.String("database", cfg.Database))
	return &Mongo{Client: client, Database: client.Database(cfg.Database)}, nil
}

// Enabled reports whether a client was established.
func (m *Mongo) Enabled() bool {
	return m != nil && m.Client != nil
}

// Ping verifies connectivity.
func (m *Mongo) Ping(ctx context.Context) error {
	if !m.Enabled() {
		return errors.New("mongo not configured")
	}
	return m.Client.Ping(ctx, nil)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) {
	if m.Enabled() {
		_ = m.Client.Disconnect(ctx)
	}
}

// GridFSDocumentStore stores uploaded registration documents in a GridFS bucket
// and hands back opaque references.
type GridFSDocumentStore struct {
	db     *mongo.Database
	bucket string
}

// NewGridFSDocumentStore returns nil when m is disabled.
func NewGridFSDocumentStore(m *Mongo, bucket string) *GridFSDocumentStore {
	if !m.Enabled() {
		return nil
	}
	return &GridFSDocumentStore{db: m.Database, bucket: bucket}
}

// Store streams r into GridFS and returns a "gridfs:<id>" reference.
func (s *GridFSDocumentStore) Store(ctx context.Context, name, contentType string, r io.Reader) (domain.DocumentRef, error) {
	if s == nil {
		return "", domain.ErrDocumentStorageUnavailable
	}

	// A bucket carries its own write deadline, so each upload gets a fresh one.
	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucket))
	if err != nil {
		return "", fmt.Errorf("open gridfs bucket: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return "", err
		}
	}

	meta := bson.D{
		{Key: "contentType", Value: contentType},
		{Key: "uploadedAt", Value: time.Now().UTC()},
	}
	id, err := bucket.UploadFromStream(name, r, options.GridFSUpload().SetMetadata(meta))
	if err != nil {
		return "", fmt.Errorf("upload document %q: %w", name, err)
	}
	return domain.DocumentRef(gridFSRefPrefix + id.Hex()), nil
}
