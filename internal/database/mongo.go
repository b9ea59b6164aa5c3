package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongo dials and pings MongoDB, retrying with exponential backoff
// until maxElapsed has passed.
func ConnectMongo(ctx context.Context, uri, dbName string, maxElapsed time.Duration, logger *zap.SugaredLogger) (*mongo.Database, *mongo.Client, error) {
	var client *mongo.Client

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		c, err := mongo.Connect(attemptCtx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := c.Ping(attemptCtx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return err
		}
		client = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	notify := func(err error, next time.Duration) {
		logger.Warnf("MongoDB not ready, retrying in %s: %v", next, err)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		logger.Errorf("MongoDB connection failed: %v", err)
		return nil, nil, err
	}

	logger.Info("MongoDB connected successfully")
	return client.Database(dbName), client, nil
}
