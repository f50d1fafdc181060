package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/lawfinder-au/collector-cli/internal/model"
	"github.com/lawfinder-au/collector-cli/internal/slug"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS lawyers (
	id                         TEXT PRIMARY KEY,
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
	languages                  TEXT,
	awards                     TEXT,
	accreditations             TEXT,
	no_win_no_fee              INTEGER NOT NULL DEFAULT 0,
	free_consultation          INTEGER NOT NULL DEFAULT 0,
	home_visits_available      INTEGER NOT NULL DEFAULT 0,
	telehealth_available       INTEGER NOT NULL DEFAULT 0,
	accepts_legal_aid          INTEGER NOT NULL DEFAULT 0,
	show_phone_link            INTEGER NOT NULL DEFAULT 1,
	show_email_link            INTEGER NOT NULL DEFAULT 0,
	show_website_link          INTEGER NOT NULL DEFAULT 1,
	google_rating              REAL,
	google_review_count        INTEGER,
	business_hours             TEXT,
	profile_image_url          TEXT,
	profile_completeness_score INTEGER NOT NULL DEFAULT 0,
	is_published               INTEGER NOT NULL DEFAULT 0,
	verification_status        TEXT NOT NULL DEFAULT 'unverified',
	is_featured                INTEGER NOT NULL DEFAULT 0,
	featured_priority          INTEGER NOT NULL DEFAULT 0,
	subscription_tier          TEXT NOT NULL DEFAULT 'free',
	verified_at                DATETIME,
	created_at                 DATETIME NOT NULL,
	updated_at                 DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lawyers_city ON lawyers(city);
CREATE INDEX IF NOT EXISTS idx_lawyers_state_code ON lawyers(state_code);

CREATE TABLE IF NOT EXISTS specializations (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS lawyer_specializations (
	lawyer_id         TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	specialization_id TEXT NOT NULL REFERENCES specializations(id) ON DELETE CASCADE,
	PRIMARY KEY (lawyer_id, specialization_id)
);

CREATE TABLE IF NOT EXISTS lawyer_service_areas (
	id         TEXT PRIMARY KEY,
	lawyer_id  TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	city       TEXT NOT NULL,
	state_code TEXT,
	UNIQUE (lawyer_id, city)
);

CREATE TABLE IF NOT EXISTS lawyer_team_members (
	id            TEXT PRIMARY KEY,
	lawyer_id     TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	full_name     TEXT NOT NULL,
	role          TEXT,
	bio           TEXT,
	photo_url     TEXT,
	display_order INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_team_members_lawyer_id ON lawyer_team_members(lawyer_id);

CREATE TABLE IF NOT EXISTS lawyer_reviews (
	id           TEXT PRIMARY KEY,
	lawyer_id    TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	author       TEXT,
	rating       INTEGER,
	body         TEXT,
	is_published INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS case_studies (
	id           TEXT PRIMARY KEY,
	lawyer_id    TEXT NOT NULL REFERENCES lawyers(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	summary      TEXT,
	is_published INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpdateLawyer = `UPDATE lawyers SET
	google_place_id = ?, firm_name = ?, state = ?, state_code = ?,
	city = ?, address = ?, phone = ?, email = ?, website = ?,
	short_description = ?, description = ?, meta_title = ?,
	meta_description = ?, years_experience = ?, founded_year = ?,
	languages = ?, awards = ?, accreditations = ?,
	no_win_no_fee = ?, free_consultation = ?, home_visits_available = ?,
	telehealth_available = ?, accepts_legal_aid = ?, google_rating = ?,
	google_review_count = ?, business_hours = ?,
	profile_completeness_score = ?, updated_at = ?
	WHERE id = ?`

const sqliteInsertLawyer = `INSERT INTO lawyers (
	id, slug, google_place_id, firm_name, state, state_code, city, address,
	phone, email, website, short_description, description, meta_title,
	meta_description, years_experience, founded_year, languages, awards,
	accreditations, no_win_no_fee, free_consultation, home_visits_available,
	telehealth_available, accepts_legal_aid, show_phone_link,
	show_email_link, show_website_link, google_rating, google_review_count,
	business_hours, profile_completeness_score, is_published,
	verification_status, is_featured, featured_priority, subscription_tier,
	created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
	?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) UpsertLawyer(ctx context.Context, l *model.Lawyer) (UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	id, found, err := sqliteFindLawyerID(ctx, tx, l)
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
		_, err = tx.ExecContext(ctx, sqliteUpdateLawyer,
			placeID, l.FirmName, l.State, l.StateCode, l.City, l.Address,
			l.Phone, l.Email, l.Website, l.ShortDescription, l.Description,
			l.MetaTitle, l.MetaDescription, l.YearsExperience, l.FoundedYear,
			string(languages), string(awards), string(accreds),
			l.NoWinNoFee, l.FreeConsultation, l.HomeVisits, l.Telehealth,
			l.AcceptsLegalAid, l.GoogleRating, l.GoogleReviewCount,
			string(hours), l.Completeness, now, id,
		)
		if err != nil {
			return UpsertResult{}, eris.Wrapf(err, "sqlite: update lawyer %s", l.Slug)
		}
	} else {
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx, sqliteInsertLawyer,
			id, l.Slug, placeID, l.FirmName, l.State, l.StateCode, l.City,
			l.Address, l.Phone, l.Email, l.Website, l.ShortDescription,
			l.Description, l.MetaTitle, l.MetaDescription, l.YearsExperience,
			l.FoundedYear, string(languages), string(awards), string(accreds),
			l.NoWinNoFee, l.FreeConsultation, l.HomeVisits, l.Telehealth,
			l.AcceptsLegalAid, true, false, true, l.GoogleRating,
			l.GoogleReviewCount, string(hours), l.Completeness, false,
			model.VerificationUnverified, false, 0, "free", now, now,
		)
		if err != nil {
			return UpsertResult{}, eris.Wrapf(err, "sqlite: insert lawyer %s", l.Slug)
		}
	}

	if err := sqliteReplaceChildren(ctx, tx, id, l); err != nil {
		return UpsertResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, eris.Wrap(err, "sqlite: commit tx")
	}
	return UpsertResult{ID: id, Created: !found}, nil
}

func sqliteFindLawyerID(ctx context.Context, tx *sql.Tx, l *model.Lawyer) (string, bool, error) {
	var id string

	if l.PlaceID != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM lawyers WHERE google_place_id = ?`, l.PlaceID,
		).Scan(&id)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", false, eris.Wrap(err, "sqlite: find by place id")
		}
	}

	err := tx.QueryRowContext(ctx, `SELECT id FROM lawyers WHERE slug = ?`, l.Slug).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, eris.Wrap(err, "sqlite: find by slug")
	}
	return "", false, nil
}

func sqliteReplaceChildren(ctx context.Context, tx *sql.Tx, lawyerID string, l *model.Lawyer) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lawyer_specializations WHERE lawyer_id = ?`, lawyerID,
	); err != nil {
		return eris.Wrap(err, "sqlite: clear specializations")
	}
	for _, name := range l.SpecializationNames {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO specializations (id, name, slug) VALUES (?, ?, ?)
			 ON CONFLICT (name) DO NOTHING`,
			uuid.New().String(), name, slug.Slugify(name),
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert specialization %q", name)
		}
		var specID string
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM specializations WHERE name = ?`, name,
		).Scan(&specID); err != nil {
			return eris.Wrapf(err, "sqlite: lookup specialization %q", name)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO lawyer_specializations (lawyer_id, specialization_id) VALUES (?, ?)`,
			lawyerID, specID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: link specialization %q", name)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lawyer_service_areas WHERE lawyer_id = ?`, lawyerID,
	); err != nil {
		return eris.Wrap(err, "sqlite: clear service areas")
	}
	if l.City != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lawyer_service_areas (id, lawyer_id, city, state_code) VALUES (?, ?, ?, ?)`,
			uuid.New().String(), lawyerID, l.City, l.StateCode,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert service area")
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lawyer_team_members WHERE lawyer_id = ?`, lawyerID,
	); err != nil {
		return eris.Wrap(err, "sqlite: clear team members")
	}
	for i, tm := range l.TeamMembers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lawyer_team_members (id, lawyer_id, full_name, role, bio, photo_url, display_order)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), lawyerID, tm.FullName, tm.Role, tm.Bio, tm.PhotoURL, i,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert team member %q", tm.FullName)
		}
	}

	return nil
}

func (s *SQLiteStore) GetLawyerBySlug(ctx context.Context, slugVal string) (*model.Lawyer, error) {
	var (
		l                                 model.Lawyer
		placeID, imageURL                 sql.NullString
		languages, awards, accreds, hours sql.NullString
		verifiedAt                        sql.NullTime
	)

	err := s.db.QueryRowContext(ctx,
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
		 FROM lawyers WHERE slug = ?`, slugVal,
	).Scan(
		&l.ID, &l.Slug, &placeID, &l.FirmName, &l.State, &l.StateCode,
		&l.City, &l.Address, &l.Phone, &l.Email, &l.Website,
		&l.ShortDescription, &l.Description, &l.MetaTitle,
		&l.MetaDescription, &l.YearsExperience, &l.FoundedYear, &languages,
		&awards, &accreds, &l.NoWinNoFee, &l.FreeConsultation, &l.HomeVisits,
		&l.Telehealth, &l.AcceptsLegalAid, &l.ShowPhoneLink, &l.ShowEmailLink,
		&l.ShowWebsiteLink, &l.GoogleRating, &l.GoogleReviewCount, &hours,
		&imageURL, &l.Completeness, &l.IsPublished, &l.VerificationStatus,
		&l.IsFeatured, &l.FeaturedPriority, &l.SubscriptionTier, &verifiedAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lawyer %s", slugVal)
	}

	l.PlaceID = placeID.String
	l.ProfileImageURL = imageURL.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		l.VerifiedAt = &t
	}
	if err := unmarshalJSONFields(&l,
		[]byte(languages.String), []byte(awards.String),
		[]byte(accreds.String), []byte(hours.String),
	); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *SQLiteStore) RelatedSignals(ctx context.Context, lawyerID string) (*RelatedSignals, error) {
	var (
		sig      RelatedSignals
		imageURL sql.NullString
		verified sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT count(*) FROM lawyer_reviews WHERE lawyer_id = ? AND is_published = 1),
			(SELECT count(*) FROM case_studies WHERE lawyer_id = ? AND is_published = 1),
			profile_image_url, verified_at
		 FROM lawyers WHERE id = ?`, lawyerID, lawyerID, lawyerID,
	).Scan(&sig.Reviews, &sig.CaseStudies, &imageURL, &verified)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: related signals %s", lawyerID)
	}
	sig.ProfileImageURL = imageURL.String
	if verified.Valid {
		t := verified.Time
		sig.VerifiedAt = &t
	}
	return &sig, nil
}

func (s *SQLiteStore) UpdateCompleteness(ctx context.Context, lawyerID string, score int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE lawyers SET profile_completeness_score = ? WHERE id = ?`,
		score, lawyerID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update completeness %s", lawyerID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("lawyer not found: %s", lawyerID)
	}
	return nil
}

func (s *SQLiteStore) CountLawyers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM lawyers`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count lawyers")
}
