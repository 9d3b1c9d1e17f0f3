package repository

import (
	"context"
	"errors"
	"testing"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *int:
			*p = r.values[i].(int)
		case *float64:
			*p = r.values[i].(float64)
		case *string:
			*p = r.values[i].(string)
		}
	}
	return nil
}

type fakePG struct {
	row      fakeRow
	tag      pgconn.CommandTag
	execErr  error
	lastSQL  string
	lastArgs []any
}

func (f *fakePG) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	return f.tag, f.execErr
}

func (f *fakePG) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (f *fakePG) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func TestPGBirthRecordsGet(t *testing.T) {
	db := &fakePG{row: fakeRow{values: []any{
		int64(7), "Ada", 1990, 7, 4, 8, 5, 35.7, 51.4, "Tehran", "Asia/Tehran",
	}}}
	repo := &PGBirthRecords{db: db}

	rec, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "1990-07-04", rec.Birthdate())
	assert.Equal(t, "08:05", rec.Birthtime())
	assert.Equal(t, []any{int64(7)}, db.lastArgs)
}

func TestPGBirthRecordsGetMissing(t *testing.T) {
	repo := &PGBirthRecords{db: &fakePG{row: fakeRow{err: pgx.ErrNoRows}}}

	_, err := repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, domrepo.ErrRecordNotFound)
}

func TestPGBirthRecordsCreate(t *testing.T) {
	db := &fakePG{row: fakeRow{values: []any{int64(42)}}}
	repo := &PGBirthRecords{db: db}

	rec := &models.BirthRecord{Name: "Ada", Year: 1990, Month: 7, Day: 4, City: "Tehran", TZStr: "Asia/Tehran"}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Equal(t, int64(42), rec.ID)
	assert.Len(t, db.lastArgs, 10)
}

func TestPGBirthRecordsDeleteMissing(t *testing.T) {
	repo := &PGBirthRecords{db: &fakePG{tag: pgconn.NewCommandTag("DELETE 0")}}
	assert.ErrorIs(t, repo.Delete(context.Background(), 3), domrepo.ErrRecordNotFound)

	repo = &PGBirthRecords{db: &fakePG{tag: pgconn.NewCommandTag("DELETE 1")}}
	assert.NoError(t, repo.Delete(context.Background(), 3))
}

func TestPGBirthRecordsUpdateMissing(t *testing.T) {
	repo := &PGBirthRecords{db: &fakePG{tag: pgconn.NewCommandTag("UPDATE 0")}}
	err := repo.Update(context.Background(), &models.BirthRecord{ID: 9})
	assert.ErrorIs(t, err, domrepo.ErrRecordNotFound)
}
