package service

import (
	"context"
	"time"

	"github.com/dandantas/tendril/internal/database"
	"github.com/dandantas/tendril/internal/model"
	"go.mongodb.org/mongo-driver/bson"
)

// HistoryStore is the persistence the history service needs
type HistoryStore interface {
	Create(ctx context.Context, record *model.GenerationRecord) error
	GetByJobID(ctx context.Context, jobID string) (*model.GenerationRecord, error)
	List(ctx context.Context, filter bson.M, page, limit int) ([]model.GenerationRecord, int64, error)
}

var _ HistoryStore = (*database.HistoryRepository)(nil)

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	Kind   string
	Status string
	From   time.Time
	To     time.Time
}

// HistoryService records and queries generation history
type HistoryService struct {
	repo HistoryStore
}

// NewHistoryService creates a new history service
func NewHistoryService(repo HistoryStore) *HistoryService {
	return &HistoryService{
		repo: repo,
	}
}

// Record stores the record of a finished job
func (s *HistoryService) Record(ctx context.Context, record *model.GenerationRecord) error {
	return s.repo.Create(ctx, record)
}

// GetByJobID retrieves the record of one job
func (s *HistoryService) GetByJobID(ctx context.Context, jobID string) (*model.GenerationRecord, error) {
	return s.repo.GetByJobID(ctx, jobID)
}

// List retrieves generation history with filtering
func (s *HistoryService) List(ctx context.Context, f HistoryFilter, page, limit int) ([]model.GenerationSummary, int64, error) {
	records, total, err := s.repo.List(ctx, f.bson(), page, limit)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]model.GenerationSummary, len(records))
	for i, rec := range records {
		summaries[i] = rec.ToSummary()
	}

	return summaries, total, nil
}

func (f HistoryFilter) bson() bson.M {
	filter := bson.M{}

	if f.Kind != "" {
		filter["kind"] = f.Kind
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	if !f.From.IsZero() || !f.To.IsZero() {
		window := bson.M{}
		if !f.From.IsZero() {
			window["$gte"] = f.From
		}
		if !f.To.IsZero() {
			window["$lte"] = f.To
		}
		filter["completed_at"] = window
	}

	return filter
}
