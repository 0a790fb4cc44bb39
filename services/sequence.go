package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NextSequence returns the next value of a named counter, starting at 1.
// Backed by an atomic upsert on the counters collection so concurrent
// callers never observe the same value.
func NextSequence(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}
