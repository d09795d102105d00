package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/digest-bot/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const messagesCollection = "messages"

// MongoStorage keeps archived messages in a MongoDB collection.
type MongoStorage struct {
	client   *mongo.Client
	messages *mongo.Collection
	logger   *zap.Logger
}

func NewMongoStorage(ctx context.Context, uri, dbName string, logger *zap.Logger) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongodb: %v", err)
	}

	// Test the connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("error pinging mongodb: %v", err)
	}

	coll := client.Database(dbName).Collection(messagesCollection)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_name", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "label", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("error creating indexes: %v", err)
	}

	return &MongoStorage{
		client:   client,
		messages: coll,
		logger:   logger,
	}, nil
}

func (s *MongoStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("error saving message: %v", err)
	}
	return nil
}

func (s *MongoStorage) FindMessages(ctx context.Context, filter MessageFilter) ([]models.Message, error) {
	query := bson.M{"chat_name": filter.ChatName}
	if filter.Label != "" {
		query["label"] = filter.Label
	}
	if !filter.Since.IsZero() {
		query["created_at"] = bson.M{"$gte": filter.Since}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.messages.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("error decoding messages: %v", err)
	}

	return messages, nil
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
