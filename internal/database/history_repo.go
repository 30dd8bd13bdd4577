package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dandantas/tendril/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrRecordNotFound is returned when no history record matches
var ErrRecordNotFound = errors.New("generation record not found")

// HistoryRepository handles generation history operations
type HistoryRepository struct {
	collection *mongo.Collection
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *MongoDB) *HistoryRepository {
	return &HistoryRepository{
		collection: db.GetCollection(CollectionGenerationHistory),
	}
}

// Create inserts a new generation record
func (r *HistoryRepository) Create(ctx context.Context, record *model.GenerationRecord) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctxTimeout, record)
	if err != nil {
		return fmt.Errorf("failed to create generation record: %w", err)
	}

	return nil
}

// GetByJobID retrieves the record of one job
func (r *HistoryRepository) GetByJobID(ctx context.Context, jobID string) (*model.GenerationRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var record model.GenerationRecord
	err := r.collection.FindOne(ctxTimeout, bson.M{"job_id": jobID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get generation record: %w", err)
	}

	return &record, nil
}

// List retrieves records newest first with filtering and pagination
func (r *HistoryRepository) List(ctx context.Context, filter bson.M, page, limit int) ([]model.GenerationRecord, int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	total, err := r.collection.CountDocuments(ctxTimeout, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count generation records: %w", err)
	}

	skip := (page - 1) * limit
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "completed_at", Value: -1}})

	cursor, err := r.collection.Find(ctxTimeout, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list generation records: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var records []model.GenerationRecord
	if err := cursor.All(ctxTimeout, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode generation records: %w", err)
	}

	return records, total, nil
}
