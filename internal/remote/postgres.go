package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/betterbench/betterbench/internal/common"
	"github.com/betterbench/betterbench/internal/models"
	"github.com/betterbench/betterbench/internal/remote/migrations"
)

// PostgresStore implements Store on PostgreSQL via pgx.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool for dsn. No connection is
// attempted here: the server must be able to start while the remote store is
// unreachable.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// RunMigrations applies the embedded schema migrations. The caller treats a
// failure as non-fatal when starting offline.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Insert(ctx context.Context, e models.Entry) (string, error) {
	doc, err := marshalEntry(e)
	if err != nil {
		return "", err
	}

	query := `INSERT INTO benches
		(name, location, ratings, images, notes, overall_score, date_visited, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var id string
	err = s.db.QueryRowContext(ctx, query,
		e.Name, doc.location, doc.ratings, doc.images, e.Notes,
		e.Ratings.Overall.Score(),
		e.DateVisited.OrNow().Time,
		e.CreatedAt.OrNow().Time,
		e.UpdatedAt.OrNow().Time,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert entry: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, e models.Entry) error {
	doc, err := marshalEntry(e)
	if err != nil {
		return err
	}

	query := `UPDATE benches SET
		name = $1, location = $2, ratings = $3, images = $4, notes = $5,
		overall_score = $6, date_visited = $7, updated_at = $8
		WHERE id = $9`

	res, err := s.db.ExecContext(ctx, query,
		e.Name, doc.location, doc.ratings, doc.images, e.Notes,
		e.Ratings.Overall.Score(),
		e.DateVisited.OrNow().Time,
		e.UpdatedAt.OrNow().Time,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM benches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM benches WHERE id = $1`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, order Order) ([]models.Entry, error) {
	column := "date_visited"
	if order == OrderRating {
		column = "overall_score"
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+` FROM benches ORDER BY `+column+` DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var result []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

const selectColumns = `SELECT id, name, location, ratings, images, notes, date_visited, created_at, updated_at`

type entryDoc struct {
	location []byte
	ratings  []byte
	images   []byte
}

func marshalEntry(e models.Entry) (entryDoc, error) {
	location, err := json.Marshal(e.Location)
	if err != nil {
		return entryDoc{}, fmt.Errorf("failed to encode location: %w", err)
	}
	ratings, err := json.Marshal(e.Ratings)
	if err != nil {
		return entryDoc{}, fmt.Errorf("failed to encode ratings: %w", err)
	}
	images := e.Images
	if images == nil {
		images = []models.ImageRef{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return entryDoc{}, fmt.Errorf("failed to encode images: %w", err)
	}
	return entryDoc{location: location, ratings: ratings, images: imagesJSON}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry maps one row back to an entry, normalizing the JSON documents
// through the models' tolerant decoders.
func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e                         models.Entry
		location, ratings, images []byte
		visited, created, updated sql.NullTime
	)

	if err := row.Scan(&e.ID, &e.Name, &location, &ratings, &images, &e.Notes, &visited, &created, &updated); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(location, &e.Location); err != nil {
		return nil, fmt.Errorf("failed to decode location: %w", err)
	}
	if err := json.Unmarshal(ratings, &e.Ratings); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}
	if err := json.Unmarshal(images, &e.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}

	e.DateVisited = nullableTimestamp(visited)
	e.CreatedAt = nullableTimestamp(created)
	e.UpdatedAt = nullableTimestamp(updated)
	return &e, nil
}

func nullableTimestamp(t sql.NullTime) models.Timestamp {
	if !t.Valid {
		return models.Now()
	}
	return models.NewTimestamp(t.Time.UTC())
}
