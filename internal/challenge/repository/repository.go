package repository

import (
	"context"

	"codearena/internal/judge/model"
)

// ChallengeRepository is the read-only content store the judge consumes.
// Missing ids yield an appErr.ChallengeNotFound error.
type ChallengeRepository interface {
	Get(ctx context.Context, id string) (model.Challenge, error)
	List(ctx context.Context) ([]model.Challenge, error)
}
