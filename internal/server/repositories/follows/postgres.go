// Package follows provides the PostgreSQL repository for the directed follow
// relation. Rows are only created and removed here; the derived counters live
// in the users repository.
package follows

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, followerID, followeeID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Insert adds the edge unless it is already present. It reports whether a
// row was actually written.
func (r *PostgresRepository) Insert(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query :=
		`INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`

	return r.execAffected(ctx, query, followerID, followeeID)
}

// Delete removes the edge and reports whether it existed.
func (r *PostgresRepository) Delete(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`

	return r.execAffected(ctx, query, followerID, followeeID)
}

// DeleteAllFor removes every edge the user participates in, on either side.
func (r *PostgresRepository) DeleteAllFor(ctx context.Context, userID int64) (int64, error) {
	query := `DELETE FROM follows WHERE follower_id = $1 OR followee_id = $1`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) FollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.ids(ctx, `SELECT follower_id FROM follows WHERE followee_id = $1 ORDER BY follower_id`, userID)
}

func (r *PostgresRepository) FollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.ids(ctx, `SELECT followee_id FROM follows WHERE follower_id = $1 ORDER BY followee_id`, userID)
}

func (r *PostgresRepository) ids(ctx context.Context, query string, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	ids, err := dbx.ScanInt64s(rows)
	if err != nil {
		return nil, fmt.Errorf("scan error: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}
