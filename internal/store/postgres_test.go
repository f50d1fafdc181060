package store

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawfinder-au/collector-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func minimalLawyer() *model.Lawyer {
	return &model.Lawyer{
		Slug:     "acme-lawyers-sydney",
		PlaceID:  "place-1",
		FirmName: "Acme Lawyers",
		City:     "",
	}
}

func expectChildRebuild(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec(`DELETE FROM lawyer_specializations`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM lawyer_service_areas`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM lawyer_team_members`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
}

func TestUpsertLawyerInsertsNewRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM lawyers WHERE google_place_id`).
		WithArgs("place-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id FROM lawyers WHERE slug`).
		WithArgs("acme-lawyers-sydney").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO lawyers`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectChildRebuild(mock)
	mock.ExpectCommit()

	res, err := s.UpsertLawyer(context.Background(), minimalLawyer())
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEmpty(t, res.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLawyerUpdatesByPlaceID(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM lawyers WHERE google_place_id`).
		WithArgs("place-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("existing-id"))
	mock.ExpectExec(`UPDATE lawyers SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectChildRebuild(mock)
	mock.ExpectCommit()

	res, err := s.UpsertLawyer(context.Background(), minimalLawyer())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "existing-id", res.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLawyerFallsBackToSlugMatch(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM lawyers WHERE google_place_id`).
		WithArgs("place-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id FROM lawyers WHERE slug`).
		WithArgs("acme-lawyers-sydney").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("slug-match-id"))
	mock.ExpectExec(`UPDATE lawyers SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectChildRebuild(mock)
	mock.ExpectCommit()

	res, err := s.UpsertLawyer(context.Background(), minimalLawyer())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "slug-match-id", res.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLawyerRollsBackOnInsertFailure(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM lawyers WHERE google_place_id`).
		WithArgs("place-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id FROM lawyers WHERE slug`).
		WithArgs("acme-lawyers-sydney").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO lawyers`).
		WillReturnError(eris.New("disk full"))
	mock.ExpectRollback()

	_, err := s.UpsertLawyer(context.Background(), minimalLawyer())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert lawyer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The update statement must never touch operator-owned columns.
func TestUpdateStatementExcludesModerationColumns(t *testing.T) {
	t.Parallel()

	for _, col := range []string{
		"is_published",
		"verification_status",
		"is_featured",
		"featured_priority",
		"subscription_tier",
		"show_phone_link",
		"show_email_link",
		"show_website_link",
		"profile_image_url",
		"verified_at",
	} {
		assert.False(t, strings.Contains(pgUpdateLawyer, col), "update writes %s", col)
		assert.False(t, strings.Contains(sqliteUpdateLawyer, col), "sqlite update writes %s", col)
	}
}

func TestUpdateCompleteness(t *testing.T) {
	t.Parallel()

	t.Run("updates existing row", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE lawyers SET profile_completeness_score`).
			WithArgs(85, "id-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, s.UpdateCompleteness(context.Background(), "id-1", 85))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is an error", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE lawyers SET profile_completeness_score`).
			WithArgs(85, "ghost").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.UpdateCompleteness(context.Background(), "ghost", 85)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestCountLawyers(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT count`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountLawyers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "oracle", "dsn", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
