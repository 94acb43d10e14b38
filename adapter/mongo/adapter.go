package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type Adapter struct {
	client     *mongo.Client
	database   string
	collection string
	logger     *zap.Logger
}

type Option func(*Adapter)

func WithDatabase(database string) Option {
	return func(a *Adapter) {
		a.database = database
	}
}

func WithCollection(collection string) Option {
	return func(a *Adapter) {
		a.collection = collection
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	defaultDatabase   = "stackit"
	defaultCollection = "questions"
)

// Connect opens a client for the given URI and verifies it can reach the server.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return client, nil
}

func New(client *mongo.Client, options ...Option) *Adapter {
	a := &Adapter{
		client:     client,
		database:   defaultDatabase,
		collection: defaultCollection,
		logger:     zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"database", a.database,
		"collection", a.collection,
	).Info("init mongo adapter")

	return a
}

const adapterName = "mongo"

func (a *Adapter) Name() string {
	return adapterName
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx, readpref.Primary())
}

func (a *Adapter) questions() *mongo.Collection {
	return a.client.Database(a.database).Collection(a.collection)
}
