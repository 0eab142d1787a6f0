package db

import (
	"context"
	"fmt"
	"go-user-api/config"
	"go-user-api/logger"
	"net/url"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// ConnectMongo opens a client and pings the primary. The caller owns the
// client and must Disconnect it on shutdown.
func ConnectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	logger.Log.WithField("connection", redactURI(cfg.Database.URI)).Info("Attempting to connect to MongoDB")

	opts := options.Client().
		ApplyURI(cfg.Database.URI).
		SetServerSelectionTimeout(cfg.Database.ConnectTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to create MongoDB client")
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		logger.Log.WithError(err).Error("Failed to ping MongoDB")
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Log.Info("MongoDB connection established successfully")
	return client, nil
}

// redactURI strips credentials so the URI can be logged.
func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
