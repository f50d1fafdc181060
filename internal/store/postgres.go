package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/lawfinder-au/collector-cli/internal/model"
	"github.com/lawfinder-au/collector-cli/internal/slug"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS lawyers (
	id                         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	slug                       TEXT NOT NULL UNIQUE,
	google_place_id            TEXT UNIQUE,
	firm_name                  TEXT NOT NULL,
	state                      TEXT,
	state_code                 TEXT,
	city                       TEXT,
	address                    TEXT,
	phone                      TEXT,
	email                      TEXT,
	website                    TEXT,
	short_description          TEXT,
	description                TEXT,
	meta_title                 TEXT,
	meta_description           TEXT,
	years_experience           INTEGER,
	founded_year               INTEGER,
	languages                  JSONB,
	awards                     JSONB,
	accreditations             JSONB,
	no_win_no_fee              BOOLEAN NOT NULL DEFAULT false,
	free_consultation          BOOLEAN NOT NULL DEFAULT false,
	home_visits_available      BOOLEAN NOT NULL DEFAULT false,
	telehealth_available       BOOLEAN NOT NULL DEFAULT false,
	accepts_legal_aid          BOOLEAN NOT NULL DEFAULT false,
	show_phone_link            BOOLEAN NOT NULL DEFAULT true,
	show_email_link            BOOLEAN NOT NULL DEFAULT false,
	show_website_link          BOOLEAN NOT NULL DEFAULT true,
	google_rating              DOUBLE PRECISION,
	google_review_count        INTEGER,
	business_hours             JSONB,
	profile_image_url          TEXT,
	profile_completeness_score INTEGER NOT NULL DEFAULT 0,
	is_published               BOOLEAN NOT NULL DEFAULT false,
	verification_status        TEXT NOT NULL DEFAULT 'unverified',
	is_featured                BOOLEAN NOT NULL DEFAULT false,
	featured_priority          INTEGER NOT NULL DEFAULT 0,
	subscription_tier          TEXT NOT NULL DEFAULT 'free',
	verified_at                TIMESTAMPTZ,
	created_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_lawyers_city ON lawyers(city);
CREATE INDEX IF NOT EXISTS idx_lawyers_state_code ON lawyers(state_code);
CREATE INDEX IF NOT EXISTS idx_lawyers_is_published ON lawyers(is_published);

CREATE TABLE IF NOT EXISTS specializations (
	id   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS lawyer_specializations (
	lawyer_id         TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	specialization_id TEXT NOT NULL REFERENCES specializations(id) ON DELETE CASCADE,
	PRIMARY KEY (lawyer_id, specialization_id)
);

CREATE TABLE IF NOT EXISTS lawyer_service_areas (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lawyer_id  TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	city       TEXT NOT NULL,
	state_code TEXT,
	UNIQUE (lawyer_id, city)
);

CREATE TABLE IF NOT EXISTS lawyer_team_members (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lawyer_id     TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	full_name     TEXT NOT NULL,
	role          TEXT,
	bio           TEXT,
	photo_url     TEXT,
	display_order INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_team_members_lawyer_id ON lawyer_team_members(lawyer_id);

CREATE TABLE IF NOT EXISTS lawyer_reviews (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lawyer_id    TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	author       TEXT,
	rating       INTEGER,
	body         TEXT,
	is_published BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS case_studies (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lawyer_id    TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	summary      TEXT,
	is_published BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgUpdateLawyer = `UPDATE lawyers SET
	google_place_id = $1, firm_name = $2, state = $3, state_code = $4,
	city = $5, address = $6, phone = $7, email = $8, website = $9,
	short_description = $10, description = $11, meta_title = $12,
	meta_description = $13, years_experience = $14, founded_year = $15,
	languages = $16, awards = $17, accreditations = $18,
	no_win_no_fee = $19, free_consultation = $20,
	home_visits_available = $21, telehealth_available = $22,
	accepts_legal_aid = $23, google_rating = $24, google_review_count = $25,
	business_hours = $26, profile_completeness_score = $27, updated_at = $28
	WHERE id = $29`

const pgInsertLawyer = `INSERT INTO lawyers (
	id, slug, google_place_id, firm_name, state, state_code, city, address,
	phone, email, website, short_description, description, meta_title,
	meta_description, years_experience, founded_year, languages, awards,
	accreditations, no_win_no_fee, free_consultation, home_visits_available,
	telehealth_available, accepts_legal_aid, show_phone_link,
	show_email_link, show_website_link, google_rating, google_review_count,
	business_hours, profile_completeness_score, is_published,
	verification_status, is_featured, featured_priority, subscription_tier,
	created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
	$31, $32, $33, $34, $35, $36, $37, $38, $39
)`

// UpsertLawyer writes one profile. Match by place ID, then slug; update
// never touches moderation columns, insert applies moderation defaults.
// Child rows are replaced in the same transaction.
func (s *PostgresStore) UpsertLawyer(ctx context.Context, l *model.Lawyer) (UpsertResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return UpsertResult{}, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	id, found, err := findLawyerID(ctx, tx, l)
	if err != nil {
		return UpsertResult{}, err
	}

	languages, awards, accreds, hours, err := marshalJSONFields(l)
	if err != nil {
		return UpsertResult{}, err
	}

	now := time.Now().UTC()
	placeID := nullable(l.PlaceID)

	if found {
		_, err = tx.Exec(ctx, pgUpdateLawyer,
			placeID, l.FirmName, l.State, l.StateCode, l.City, l.Address,
			l.Phone, l.Email, l.Website, l.ShortDescription, l.Description,
			l.MetaTitle, l.MetaDescription, l.YearsExperience, l.FoundedYear,
			languages, awards, accreds, l.NoWinNoFee, l.FreeConsultation,
			l.HomeVisits, l.Telehealth, l.AcceptsLegalAid, l.GoogleRating,
			l.GoogleReviewCount, hours, l.Completeness, now, id,
		)
		if err != nil {
			return UpsertResult{}, eris.Wrapf(err, "postgres: update lawyer %s", l.Slug)
		}
	} else {
		id = uuid.New().String()
		_, err = tx.Exec(ctx, pgInsertLawyer,
			id, l.Slug, placeID, l.FirmName, l.State, l.StateCode, l.City,
			l.Address, l.Phone, l.Email, l.Website, l.ShortDescription,
			l.Description, l.MetaTitle, l.MetaDescription, l.YearsExperience,
			l.FoundedYear, languages, awards, accreds, l.NoWinNoFee,
			l.FreeConsultation, l.HomeVisits, l.Telehealth, l.AcceptsLegalAid,
			true, false, true, l.GoogleRating, l.GoogleReviewCount, hours,
			l.Completeness, false, model.VerificationUnverified, false, 0,
			"free", now, now,
		)
		if err != nil {
			return UpsertResult{}, eris.Wrapf(err, "postgres: insert lawyer %s", l.Slug)
		}
	}

	if err := s.replaceChildren(ctx, tx, id, l); err != nil {
		return UpsertResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, eris.Wrap(err, "postgres: commit tx")
	}
	return UpsertResult{ID: id, Created: !found}, nil
}

func findLawyerID(ctx context.Context, tx pgx.Tx, l *model.Lawyer) (string, bool, error) {
	var id string

	if l.PlaceID != "" {
		err := tx.QueryRow(ctx,
			`SELECT id FROM lawyers WHERE google_place_id = $1`, l.PlaceID,
		).Scan(&id)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", false, eris.Wrap(err, "postgres: find by place id")
		}
	}

	err := tx.QueryRow(ctx, `SELECT id FROM lawyers WHERE slug = $1`, l.Slug).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, eris.Wrap(err, "postgres: find by slug")
	}
	return "", false, nil
}

func (s *PostgresStore) replaceChildren(ctx context.Context, tx pgx.Tx, lawyerID string, l *model.Lawyer) error {
	// Specializations: upsert the lookup rows, then rebuild the links.
	if _, err := tx.Exec(ctx,
		`DELETE FROM lawyer_specializations WHERE lawyer_id = $1`, lawyerID,
	); err != nil {
		return eris.Wrap(err, "postgres: clear specializations")
	}
	for _, name := range l.SpecializationNames {
		var specID string
		err := tx.QueryRow(ctx,
			`INSERT INTO specializations (id, name, slug) VALUES ($1, $2, $3)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			uuid.New().String(), name, slug.Slugify(name),
		).Scan(&specID)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert specialization %q", name)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO lawyer_specializations (lawyer_id, specialization_id)
			 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			lawyerID, specID,
		); err != nil {
			return eris.Wrapf(err, "postgres: link specialization %q", name)
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM lawyer_service_areas WHERE lawyer_id = $1`, lawyerID,
	); err != nil {
		return eris.Wrap(err, "postgres: clear service areas")
	}
	if l.City != "" {
		if _, err := tx.Exec(ctx,
			`INSERT INTO lawyer_service_areas (id, lawyer_id, city, state_code) VALUES ($1, $2, $3, $4)`,
			uuid.New().String(), lawyerID, l.City, l.StateCode,
		); err != nil {
			return eris.Wrap(err, "postgres: insert service area")
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM lawyer_team_members WHERE lawyer_id = $1`, lawyerID,
	); err != nil {
		return eris.Wrap(err, "postgres: clear team members")
	}
	for i, tm := range l.TeamMembers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO lawyer_team_members (id, lawyer_id, full_name, role, bio, photo_url, display_order)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New().String(), lawyerID, tm.FullName, tm.Role, tm.Bio, tm.PhotoURL, i,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert team member %q", tm.FullName)
		}
	}

	return nil
}

func (s *PostgresStore) GetLawyerBySlug(ctx context.Context, slugVal string) (*model.Lawyer, error) {
	var (
		l                                 model.Lawyer
		placeID                           *string
		languages, awards, accreds, hours []byte
	)

	err := s.pool.QueryRow(ctx,
		`SELECT id, slug, google_place_id, firm_name, state, state_code, city,
			address, phone, email, website, short_description, description,
			meta_title, meta_description, years_experience, founded_year,
			languages, awards, accreditations, no_win_no_fee, free_consultation,
			home_visits_available, telehealth_available, accepts_legal_aid,
			show_phone_link, show_email_link, show_website_link, google_rating,
			google_review_count, business_hours, profile_image_url,
			profile_completeness_score, is_published, verification_status,
			is_featured, featured_priority, subscription_tier, verified_at,
			created_at, updated_at
		 FROM lawyers WHERE slug = $1`, slugVal,
	).Scan(
		&l.ID, &l.Slug, &placeID, &l.FirmName, &l.State, &l.StateCode,
		&l.City, &l.Address, &l.Phone, &l.Email, &l.Website,
		&l.ShortDescription, &l.Description, &l.MetaTitle,
		&l.MetaDescription, &l.YearsExperience, &l.FoundedYear, &languages,
		&awards, &accreds, &l.NoWinNoFee, &l.FreeConsultation, &l.HomeVisits,
		&l.Telehealth, &l.AcceptsLegalAid, &l.ShowPhoneLink, &l.ShowEmailLink,
		&l.ShowWebsiteLink, &l.GoogleRating, &l.GoogleReviewCount, &hours,
		&l.ProfileImageURL, &l.Completeness, &l.IsPublished,
		&l.VerificationStatus, &l.IsFeatured, &l.FeaturedPriority,
		&l.SubscriptionTier, &l.VerifiedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lawyer %s", slugVal)
	}

	if placeID != nil {
		l.PlaceID = *placeID
	}
	if err := unmarshalJSONFields(&l, languages, awards, accreds, hours); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) RelatedSignals(ctx context.Context, lawyerID string) (*RelatedSignals, error) {
	var (
		sig      RelatedSignals
		imageURL *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT
			(SELECT count(*) FROM lawyer_reviews WHERE lawyer_id = $1 AND is_published = true),
			(SELECT count(*) FROM case_studies WHERE lawyer_id = $1 AND is_published = true),
			profile_image_url, verified_at
		 FROM lawyers WHERE id = $1`, lawyerID,
	).Scan(&sig.Reviews, &sig.CaseStudies, &imageURL, &sig.VerifiedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: related signals %s", lawyerID)
	}
	if imageURL != nil {
		sig.ProfileImageURL = *imageURL
	}
	return &sig, nil
}

func (s *PostgresStore) UpdateCompleteness(ctx context.Context, lawyerID string, score int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lawyers SET profile_completeness_score = $1 WHERE id = $2`,
		score, lawyerID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update completeness %s", lawyerID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lawyer not found: %s", lawyerID)
	}
	return nil
}

func (s *PostgresStore) CountLawyers(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM lawyers`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count lawyers")
}

// helpers

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalJSONFields(l *model.Lawyer) (languages, awards, accreds, hours []byte, err error) {
	if languages, err = json.Marshal(emptySlice(l.Languages)); err != nil {
		return nil, nil, nil, nil, eris.Wrap(err, "store: marshal languages")
	}
	if awards, err = json.Marshal(emptySlice(l.Awards)); err != nil {
		return nil, nil, nil, nil, eris.Wrap(err, "store: marshal awards")
	}
	if accreds, err = json.Marshal(emptySlice(l.Accreditations)); err != nil {
		return nil, nil, nil, nil, eris.Wrap(err, "store: marshal accreditations")
	}
	bh := l.BusinessHours
	if bh == nil {
		bh = map[string]string{}
	}
	if hours, err = json.Marshal(bh); err != nil {
		return nil, nil, nil, nil, eris.Wrap(err, "store: marshal hours")
	}
	return languages, awards, accreds, hours, nil
}

func unmarshalJSONFields(l *model.Lawyer, languages, awards, accreds, hours []byte) error {
	for _, f := range []struct {
		data []byte
		dst  any
	}{
		{languages, &l.Languages},
		{awards, &l.Awards},
		{accreds, &l.Accreditations},
		{hours, &l.BusinessHours},
	} {
		if len(f.data) == 0 {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return eris.Wrap(err, "store: unmarshal json field")
		}
	}
	return nil
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
