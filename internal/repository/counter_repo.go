package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PositionSequence names the counter backing Konga-line positions.
const PositionSequence = "enrollee_position"

// Sequencer hands out strictly increasing integers per name.
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

type mongoSequencer struct {
	col *mongo.Collection
}

func NewMongoSequencer(db *mongo.Database, collection string) Sequencer {
	return &mongoSequencer{col: db.Collection(collection)}
}

// Next atomically increments the named counter and returns the new value.
// The first call for a name returns 1.
func (s *mongoSequencer) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
