// internal/analytics/service.go
package analytics

import (
	"context"

	"github.com/google/uuid"
)

// SavingsStats is the derived dashboard shape. It is recomputed on demand
// from redemption history and never persisted.
type SavingsStats struct {
	TotalSaved         float64 `json:"total_saved"`
	MonthlySaved       float64 `json:"monthly_saved"`
	SavingsStreak      int     `json:"savings_streak"`
	MonthlySavingsGoal float64 `json:"monthly_savings_goal"`
}

// Service defines the interface for the savings and streak analytics
// engine.
type Service interface {
	TotalSaved(ctx context.Context, accountID uuid.UUID) (float64, error)
	MonthlySaved(ctx context.Context, accountID uuid.UUID) (float64, error)
	SavingsStreak(ctx context.Context, accountID uuid.UUID) (int, error)
	Stats(ctx context.Context, accountID uuid.UUID) (*SavingsStats, error)
}
