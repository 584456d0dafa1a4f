package entry

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	col    *mongo.Collection
	logger *log.Logger
}

func NewMongoStore(ctx context.Context, db *mongo.Database, logger *log.Logger) (Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &mongoStore{
		col:    db.Collection("entries"),
		logger: logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureIndexes makes sure a diary ID can never be stored twice and that
// entries can be listed by resolved timestamp.
func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "diaryId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "published", Value: 1}},
		},
	}
	if _, err := s.col.Indexes().CreateMany(ctx, indexes); err != nil {
		s.logger.Printf("store: failed to create indexes: %v", err)
		return err
	}
	return nil
}

func (s *mongoStore) IDs(ctx context.Context) (map[string]struct{}, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"diaryId": 1}))
	if err != nil {
		return nil, fmt.Errorf("store: find ids: %w", err)
	}
	defer cur.Close(ctx)

	ids := make(map[string]struct{})
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"diaryId"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("store: decode id: %w", err)
		}
		ids[doc.ID] = struct{}{}
	}
	return ids, cur.Err()
}

func (s *mongoStore) List(ctx context.Context) ([]Entry, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("store: find entries: %w", err)
	}
	defer cur.Close(ctx)

	var out []Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("store: decode entries: %w", err)
	}
	return out, nil
}

// Append inserts one document per entry; the unique index turns repeats into
// duplicate-key errors, which are skipped.
func (s *mongoStore) Append(ctx context.Context, entries []*Entry) (int, error) {
	added := 0
	for _, e := range entries {
		_, err := s.col.InsertOne(ctx, e)
		if mongo.IsDuplicateKeyError(err) {
			s.logger.Printf("store: entry %s already stored, skipping", e.ID)
			continue
		}
		if err != nil {
			return added, fmt.Errorf("store: insert %s: %w", e.ID, err)
		}
		added++
	}
	return added, nil
}

func (s *mongoStore) SetPublished(ctx context.Context, e *Entry) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"diaryId": e.ID},
		bson.M{"$set": bson.M{
			"published":   e.Published,
			"publishedAt": e.PublishedAt,
			"pageUrl":     e.PageURL,
		}},
	)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", e.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("store: entry %s not found", e.ID)
	}
	return nil
}

func (s *mongoStore) Flush(context.Context) error { return nil }

func (s *mongoStore) Close(context.Context) error { return nil }
