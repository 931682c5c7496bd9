package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "device_state"

type deviceEntry struct {
	DeviceID  string    `bson:"device_id"`
	Key       string    `bson:"key"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per (device, key).
type MongoStore struct {
	collection *mongo.Collection
	deviceID   string
	timeout    time.Duration
}

func NewMongoStore(db *mongo.Database, deviceID string, timeout time.Duration) *MongoStore {
	return &MongoStore{
		collection: db.Collection(CollectionName),
		deviceID:   deviceID,
		timeout:    timeout,
	}
}

func (m *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < m.timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func (m *MongoStore) filter(key string) bson.M {
	return bson.M{"device_id": m.deviceID, "key": key}
}

func (m *MongoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var entry deviceEntry
	err := m.collection.FindOne(ctx, m.filter(key)).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (m *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": deviceEntry{
		DeviceID:  m.deviceID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}}
	_, err := m.collection.UpdateOne(ctx, m.filter(key), update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if _, err := m.collection.DeleteOne(ctx, m.filter(key)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
