package reviews

import (
	"context"

	"pulse/internal/platform/backend"
)

type BackendAPI interface {
	GetReview(ctx context.Context, orgID, reviewID int64) (*backend.Review, error)
	CreateReview(ctx context.Context, orgID int64, review backend.SaveReview) (int64, error)
	UpdateReview(ctx context.Context, orgID, reviewID int64, review backend.SaveReview) error
	DeleteSkillEntry(ctx context.Context, orgID, reviewID, entryID int64) error
	AddSkillEntries(ctx context.Context, orgID, reviewID int64, entries []backend.SaveSkillEntry) error
	GenerateSkillEntries(ctx context.Context, orgID int64, rawText string) ([]backend.GeneratedSkillEntry, error)
}
