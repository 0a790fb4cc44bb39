package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	usersCollection := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := usersCollection.Indexes().CreateMany(context.Background(), userIndexes)
	if err != nil {
		return err
	}

	coursesCollection := db.Collection("courses")
	courseIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "teacher_id", Value: 1}}},
	}
	_, err = coursesCollection.Indexes().CreateMany(context.Background(), courseIndexes)
	if err != nil {
		return err
	}

	enrollmentsCollection := db.Collection("enrollments")
	enrollmentIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}, {Key: "student_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "student_id", Value: 1}}},
	}
	_, err = enrollmentsCollection.Indexes().CreateMany(context.Background(), enrollmentIndexes)
	if err != nil {
		return err
	}

	filesCollection := db.Collection("files")
	fileIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "course_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	_, err = filesCollection.Indexes().CreateMany(context.Background(), fileIndexes)
	if err != nil {
		return err
	}

	messagesCollection := db.Collection("messages")
	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "course_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	}
	_, err = messagesCollection.Indexes().CreateMany(context.Background(), messageIndexes)
	if err != nil {
		return err
	}

	// Chunk catalog: one entry per chunk in the vector index, used for
	// filtered counts, filtered deletes and orphan sweeps.
	chunkIndexCollection := db.Collection("chunk_index")
	chunkIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "course_id", Value: 1}}},
		{Keys: bson.D{{Key: "file_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "chunk_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = chunkIndexCollection.Indexes().CreateMany(context.Background(), chunkIndexes)
	if err != nil {
		return err
	}

	return nil
}
