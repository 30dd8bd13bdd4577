package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generation record statuses
const (
	GenerationCompleted = "completed"
	GenerationAbandoned = "abandoned"
)

// Bounds is the final extent of a generated curve
type Bounds struct {
	MinX float64 `json:"min_x" bson:"min_x"`
	MinY float64 `json:"min_y" bson:"min_y"`
	MaxX float64 `json:"max_x" bson:"max_x"`
	MaxY float64 `json:"max_y" bson:"max_y"`
}

// GenerationRecord is the audit trail of one finished or abandoned job.
// Records are never used to restore jobs.
type GenerationRecord struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	JobID          string             `json:"job_id" bson:"job_id"`
	Kind           string             `json:"kind" bson:"kind"`
	CorrelationID  string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Status         string             `json:"status" bson:"status"`
	Steps          int                `json:"steps" bson:"steps"`
	TotalSteps     int                `json:"total_steps" bson:"total_steps"`
	Checkpoints    int                `json:"checkpoints" bson:"checkpoints"`
	RenderFailures int                `json:"render_failures" bson:"render_failures"`
	MaxRadius      float64            `json:"max_radius" bson:"max_radius"`
	Bounds         Bounds             `json:"bounds" bson:"bounds"`
	Error          string             `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt      time.Time          `json:"started_at" bson:"started_at"`
	CompletedAt    time.Time          `json:"completed_at" bson:"completed_at"`
	DurationMs     int64              `json:"duration_ms" bson:"duration_ms"`
}

// GenerationSummary is the list form of a record
type GenerationSummary struct {
	JobID       string `json:"job_id"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	Steps       int    `json:"steps"`
	TotalSteps  int    `json:"total_steps"`
	CompletedAt string `json:"completed_at"`
	DurationMs  int64  `json:"duration_ms"`
}

// ToSummary converts a record to its list form
func (g *GenerationRecord) ToSummary() GenerationSummary {
	var completedAt string
	if !g.CompletedAt.IsZero() {
		completedAt = g.CompletedAt.Format(time.RFC3339)
	}

	return GenerationSummary{
		JobID:       g.JobID,
		Kind:        g.Kind,
		Status:      g.Status,
		Steps:       g.Steps,
		TotalSteps:  g.TotalSteps,
		CompletedAt: completedAt,
		DurationMs:  g.DurationMs,
	}
}
