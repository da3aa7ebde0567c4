package interfaces

import (
	"context"

	"loanpilot/internal/model"
)

// Scorer produces sanction amounts for applicant profiles.
type Scorer interface {
	// Score predicts the sanction amount for a profile. The second
	// return reports whether the amount came from the cache.
	Score(ctx context.Context, profile *model.ApplicantProfile) (float64, bool, error)

	// Info describes the loaded model
	Info() *model.ModelInfo
}
