// Package store persists lawyer profiles to the directory database.
// Postgres is the production driver; SQLite backs local runs and tests.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lawfinder-au/collector-cli/internal/model"
)

// UpsertResult reports what an upsert did.
type UpsertResult struct {
	ID      string
	Created bool
}

// RelatedSignals carries the child-table counts and operator-set profile
// state that feed the completeness score.
type RelatedSignals struct {
	Reviews         int
	CaseStudies     int
	ProfileImageURL string
	VerifiedAt      *time.Time
}

// Store defines the persistence interface for the import phase.
//
// UpsertLawyer matches an existing row by google_place_id first, then by
// slug. Updates refresh data fields only; the moderation columns
// (is_published, verification_status, is_featured, featured_priority,
// subscription_tier) are written once on insert and never touched again.
// Child collections are replaced inside the same transaction as the
// parent write.
type Store interface {
	UpsertLawyer(ctx context.Context, l *model.Lawyer) (UpsertResult, error)
	GetLawyerBySlug(ctx context.Context, slug string) (*model.Lawyer, error)
	RelatedSignals(ctx context.Context, lawyerID string) (*RelatedSignals, error)
	UpdateCompleteness(ctx context.Context, lawyerID string, score int) error
	CountLawyers(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	case "sqlite":
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
