// Package users provides the PostgreSQL repository for user rows, their role
// assignments and the derived follower/following counters.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
)

// PostgresRepository implements user storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a user and fills in its id and creation time. A taken name
// yields common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, password_hash, gender, age)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.PasswordHash, user.Gender, user.Age).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user name %q is taken", common.ErrorConflict, user.Name)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// AssignRole links the user to the named role. Unknown roles are ignored.
func (r *PostgresRepository) AssignRole(ctx context.Context, userID int64, role string) error {
	query :=
		`INSERT INTO user_roles (user_id, role_id)
		 SELECT $1, id FROM roles WHERE name = $2
		 ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID, role); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the user row, soft-deleted or not.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, name, password_hash, gender, age, follower_count, following_count, deleted, created_at
		 FROM users WHERE id = $1`

	u := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.PasswordHash, &u.Gender, &u.Age,
		&u.FollowerCount, &u.FollowingCount, &u.Deleted, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// LockActivePair takes FOR KEY SHARE locks on whichever of a and b are active
// users and returns their ids in ascending order. Counter updates on the
// locked rows still proceed; LockForDelete on either of them waits.
func (r *PostgresRepository) LockActivePair(ctx context.Context, a, b int64) ([]int64, error) {
	query :=
		`SELECT id FROM users
		 WHERE id IN ($1, $2) AND NOT deleted
		 ORDER BY id
		 FOR KEY SHARE`

	rows, err := r.db.QueryContext(ctx, query, a, b)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	ids, err := dbx.ScanInt64s(rows)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}

// LockForDelete locks an active user's row exclusively until the end of the
// transaction. It reports false when there is no such user.
func (r *PostgresRepository) LockForDelete(ctx context.Context, id int64) (bool, error) {
	query := `SELECT id FROM users WHERE id = $1 AND NOT deleted FOR UPDATE`

	var got int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

// HasRole reports whether the user is assigned the named role.
func (r *PostgresRepository) HasRole(ctx context.Context, id int64, role string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id
		   WHERE ur.user_id = $1 AND ro.name = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, id, role).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// AdjustFollowCounts adds delta to the follower's following_count and to the
// followee's follower_count in a single statement. Both rows must exist.
func (r *PostgresRepository) AdjustFollowCounts(ctx context.Context, followerID, followeeID, delta int64) error {
	query :=
		`UPDATE users SET
		   following_count = following_count + CASE WHEN id = $1 THEN $3 ELSE 0 END,
		   follower_count  = follower_count  + CASE WHEN id = $2 THEN $3 ELSE 0 END
		 WHERE id IN ($1, $2)`

	res, err := r.db.ExecContext(ctx, query, followerID, followeeID, delta)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("follow counters: expected 2 rows, updated %d", n)
	}
	return nil
}

// RecountFollows rewrites both counters of the user from the follows relation.
func (r *PostgresRepository) RecountFollows(ctx context.Context, id int64) (models.FollowCounts, error) {
	query :=
		`UPDATE users SET
		   follower_count  = (SELECT COUNT(*) FROM follows WHERE followee_id = $1),
		   following_count = (SELECT COUNT(*) FROM follows WHERE follower_id = $1)
		 WHERE id = $1
		 RETURNING follower_count, following_count`

	var c models.FollowCounts
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.Followers, &c.Following)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, common.ErrorNotFound
		}
		return c, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// ReleaseFollowEdges decrements the counters of every active user on the
// other side of id's follow edges. The edges themselves are removed by the
// follows repository afterwards, in the same transaction, which must hold
// LockForDelete on id so that no edge of id appears in between.
func (r *PostgresRepository) ReleaseFollowEdges(ctx context.Context, id int64) error {
	queries := []string{
		`UPDATE users SET follower_count = follower_count - 1
		 WHERE id IN (SELECT followee_id FROM follows WHERE follower_id = $1) AND NOT deleted`,
		`UPDATE users SET following_count = following_count - 1
		 WHERE id IN (SELECT follower_id FROM follows WHERE followee_id = $1) AND NOT deleted`,
	}
	for _, q := range queries {
		if _, err := r.db.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// UpdateProfile sets the non-nil fields on an active user. It reports false
// when no such user exists.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id int64, gender *string, age *int) (bool, error) {
	query :=
		`UPDATE users SET gender = COALESCE($2, gender), age = COALESCE($3, age)
		 WHERE id = $1 AND NOT deleted`

	var g, a any
	if gender != nil {
		g = *gender
	}
	if age != nil {
		a = *age
	}

	res, err := r.db.ExecContext(ctx, query, id, g, a)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

// SoftDelete flags the user as deleted and zeroes its counters.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	query :=
		`UPDATE users SET deleted = TRUE, follower_count = 0, following_count = 0
		 WHERE id = $1 AND NOT deleted`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

// HighestFollowRatio returns the active user with the largest
// follower_count / following_count, lowest id first on ties. Users following
// nobody are not ranked.
func (r *PostgresRepository) HighestFollowRatio(ctx context.Context) (*models.FollowRatio, error) {
	query :=
		`SELECT id, name, follower_count::float8 / following_count
		 FROM users
		 WHERE NOT deleted AND following_count > 0
		 ORDER BY follower_count::numeric / following_count DESC, id
		 LIMIT 1`

	fr := &models.FollowRatio{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&fr.UserID, &fr.Name, &fr.Ratio); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return fr, nil
}
