// Package mongo persists settings and chat sessions in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	settingsCollection = "platform_settings"
	sessionsCollection = "chat_sessions"
	connectTimeout     = 10 * time.Second
)

// Client wraps a connected MongoDB client and the selected database
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and verifies the connection
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	opts := options.Client().ApplyURI(uri).SetConnectTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return &Client{client: client, db: client.Database(database)}, nil
}

// Close disconnects from the server
func (c *Client) Close() error {
	return c.client.Disconnect(context.Background())
}

// Ping verifies connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Settings returns the settings repository backed by this client
func (c *Client) Settings() *SettingsRepository {
	return &SettingsRepository{coll: c.db.Collection(settingsCollection)}
}

// Sessions returns the session repository backed by this client
func (c *Client) Sessions() *SessionRepository {
	return &SessionRepository{coll: c.db.Collection(sessionsCollection)}
}
