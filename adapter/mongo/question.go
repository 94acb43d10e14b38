package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver"
)

type questionDocument struct {
	ID    any    `bson:"_id"`
	Title string `bson:"title"`
}

// ListQuestions returns up to limit question titles, newest first. A limit of
// zero or less returns every question.
func (a *Adapter) ListQuestions(ctx context.Context, limit int) ([]mlserver.Candidate, error) {
	findOptions := options.Find().
		SetProjection(bson.M{"title": 1}).
		SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cursor, err := a.questions().Find(ctx, bson.M{"title": bson.M{"$type": "string"}}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("finding questions: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []mlserver.Candidate
	for cursor.Next(ctx) {
		var doc questionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding question: %w", err)
		}
		candidates = append(candidates, mlserver.Candidate{
			ID:   idString(doc.ID),
			Text: doc.Title,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}

	a.logger.Debug("listed questions", zap.Int("count", len(candidates)))

	return candidates, nil
}

func idString(id any) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
