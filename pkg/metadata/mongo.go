package metadata

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/tokenforge/pkg/buildinfo"
	"github.com/matzehuels/tokenforge/pkg/config"
	"github.com/matzehuels/tokenforge/pkg/errors"
	"github.com/matzehuels/tokenforge/pkg/retry"
	"github.com/matzehuels/tokenforge/pkg/token"
)

const mongoConnectTimeout = 10 * time.Second

// MongoWriter upserts records into a collection keyed by edition.
type MongoWriter struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// NewMongoWriter wraps an existing collection. The caller keeps ownership of
// the client.
func NewMongoWriter(coll *mongo.Collection) *MongoWriter {
	return &MongoWriter{client: coll.Database().Client(), coll: coll}
}

// DialMongo connects to the configured deployment, verifies it with a ping,
// and makes sure editions are unique within the collection.
func DialMongo(ctx context.Context, cfg config.PublishConfig) (*MongoWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetAppName(buildinfo.UserAgent())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "connect to mongo")
	}
	err = retry.Backoff(ctx, func() error {
		return retry.Transient(client.Ping(ctx, nil))
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "ping mongo")
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "edition", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "create edition index")
	}

	return &MongoWriter{client: client, coll: coll, owned: true}, nil
}

// Write upserts md by edition. Network errors and timeouts are retried;
// failures carry the IO_ERROR code.
func (w *MongoWriter) Write(ctx context.Context, md token.Metadata) error {
	filter := bson.M{"edition": md.Edition}
	err := retry.Backoff(ctx, func() error {
		_, err := w.coll.ReplaceOne(ctx, filter, md, options.Replace().SetUpsert(true))
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			return retry.Transient(err)
		}
		return err
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "publish metadata %d", md.Edition)
	}
	return nil
}

// Find returns the published record for edition.
func (w *MongoWriter) Find(ctx context.Context, edition int) (token.Metadata, error) {
	var md token.Metadata
	err := w.coll.FindOne(ctx, bson.M{"edition": edition}).Decode(&md)
	if err == mongo.ErrNoDocuments {
		return token.Metadata{}, errors.New(errors.ErrCodeNotFound, "edition %d not published", edition)
	}
	if err != nil {
		return token.Metadata{}, errors.Wrap(errors.ErrCodeIO, err, "find edition %d", edition)
	}
	return md, nil
}

// Close disconnects the client if the writer created it.
func (w *MongoWriter) Close(ctx context.Context) error {
	if !w.owned {
		return nil
	}
	return w.client.Disconnect(ctx)
}
