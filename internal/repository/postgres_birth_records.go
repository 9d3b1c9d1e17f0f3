package repository

import (
	"context"
	"errors"
	"fmt"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	pkgpg "AstroPull/pkg/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// BirthRecordSchema creates the users table.
var BirthRecordSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id      BIGSERIAL PRIMARY KEY,
        name    TEXT             NOT NULL,
        year    INTEGER          NOT NULL,
        month   INTEGER          NOT NULL,
        day     INTEGER          NOT NULL,
        hour    INTEGER          NOT NULL,
        minute  INTEGER          NOT NULL,
        lat     DOUBLE PRECISION NOT NULL,
        lng     DOUBLE PRECISION NOT NULL,
        city    TEXT             NOT NULL,
        tz_str  TEXT             NOT NULL
    )`,
}

const birthRecordColumns = "id, name, year, month, day, hour, minute, lat, lng, city, tz_str"

// pgQuerier is the subset of pgxpool.Pool used by the repository.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGBirthRecords implements BirthRecordRepository on Postgres.
type PGBirthRecords struct {
	db pgQuerier
}

// NewPGBirthRecords creates the repository over a pooled client.
func NewPGBirthRecords(client *pkgpg.Client) *PGBirthRecords {
	return &PGBirthRecords{db: client.Pool()}
}

var _ domrepo.BirthRecordRepository = (*PGBirthRecords)(nil)

func (r *PGBirthRecords) Create(ctx context.Context, rec *models.BirthRecord) error {
	const q = `INSERT INTO users (name, year, month, day, hour, minute, lat, lng, city, tz_str)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := r.db.QueryRow(ctx, q,
		rec.Name, rec.Year, rec.Month, rec.Day, rec.Hour, rec.Minute,
		rec.Lat, rec.Lng, rec.City, rec.TZStr,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PGBirthRecords) Get(ctx context.Context, id int64) (*models.BirthRecord, error) {
	q := "SELECT " + birthRecordColumns + " FROM users WHERE id = $1"
	rec, err := scanBirthRecord(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domrepo.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return rec, nil
}

func (r *PGBirthRecords) List(ctx context.Context) ([]*models.BirthRecord, error) {
	q := "SELECT " + birthRecordColumns + " FROM users ORDER BY id ASC"
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]*models.BirthRecord, 0, 16)
	for rows.Next() {
		rec, err := scanBirthRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *PGBirthRecords) Update(ctx context.Context, rec *models.BirthRecord) error {
	const q = `UPDATE users SET name = $2, year = $3, month = $4, day = $5, hour = $6,
        minute = $7, lat = $8, lng = $9, city = $10, tz_str = $11 WHERE id = $1`
	tag, err := r.db.Exec(ctx, q,
		rec.ID, rec.Name, rec.Year, rec.Month, rec.Day, rec.Hour, rec.Minute,
		rec.Lat, rec.Lng, rec.City, rec.TZStr,
	)
	if err != nil {
		return fmt.Errorf("update user %d: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domrepo.ErrRecordNotFound
	}
	return nil
}

func (r *PGBirthRecords) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domrepo.ErrRecordNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBirthRecord(row rowScanner) (*models.BirthRecord, error) {
	var rec models.BirthRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.Year, &rec.Month, &rec.Day, &rec.Hour,
		&rec.Minute, &rec.Lat, &rec.Lng, &rec.City, &rec.TZStr)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
