package registry

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgres(mock), mock
}

func TestPostgres_EnsureSchema(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta(createTableSQL)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, pg.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Save(t *testing.T) {
	pg, mock := newMockPostgres(t)
	model := testModel("India")
	blob, err := Encode(model)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(upsertModelSQL)).
		WithArgs("India", blob, model.FittedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, pg.Save(context.Background(), model))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveError(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta(upsertModelSQL)).
		WithArgs("India", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := pg.Save(context.Background(), testModel("India"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgres_Load(t *testing.T) {
	pg, mock := newMockPostgres(t)
	model := testModel("India")
	blob, err := Encode(model)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(selectModelSQL)).
		WithArgs("India").
		WillReturnRows(pgxmock.NewRows([]string{"blob"}).AddRow(blob))

	loaded, err := pg.Load(context.Background(), "India")
	require.NoError(t, err)
	assert.Equal(t, model, loaded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadMissing(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectModelSQL)).
		WithArgs("Atlantis").
		WillReturnError(pgx.ErrNoRows)

	_, err := pg.Load(context.Background(), "Atlantis")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_CheckReadiness(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectPing()

	require.NoError(t, pg.CheckReadiness(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
