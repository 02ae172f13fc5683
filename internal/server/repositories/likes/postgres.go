// Package likes provides the PostgreSQL repository for review likes. The like
// count of a review is never stored; it is always counted from these rows.
package likes

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert records the like. It reports false when the pair already existed.
// A review or user that no longer exists yields common.ErrorNotFound.
func (r *PostgresRepository) Insert(ctx context.Context, reviewID, userID int64) (bool, error) {
	query :=
		`INSERT INTO review_likes (review_id, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`

	n, err := r.execAffected(ctx, query, reviewID, userID)
	if dbx.IsForeignKeyViolation(err) {
		return false, fmt.Errorf("%w: review %d", common.ErrorNotFound, reviewID)
	}
	return n > 0, err
}

func (r *PostgresRepository) Delete(ctx context.Context, reviewID, userID int64) (bool, error) {
	n, err := r.execAffected(ctx, `DELETE FROM review_likes WHERE review_id = $1 AND user_id = $2`, reviewID, userID)
	return n > 0, err
}

func (r *PostgresRepository) Count(ctx context.Context, reviewID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_likes WHERE review_id = $1`, reviewID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) UserIDs(ctx context.Context, reviewID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM review_likes WHERE review_id = $1 ORDER BY user_id`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	ids, err := dbx.ScanInt64s(rows)
	if err != nil {
		return nil, fmt.Errorf("scan error: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) DeleteByReview(ctx context.Context, reviewID int64) (int64, error) {
	return r.execAffected(ctx, `DELETE FROM review_likes WHERE review_id = $1`, reviewID)
}

// DeleteByRecipe removes the likes of every review on the recipe.
func (r *PostgresRepository) DeleteByRecipe(ctx context.Context, recipeID int64) (int64, error) {
	query :=
		`DELETE FROM review_likes
		 WHERE review_id IN (SELECT id FROM reviews WHERE recipe_id = $1)`

	return r.execAffected(ctx, query, recipeID)
}

// UserIDsByRecipe returns the likers of every liked review on the recipe,
// keyed by review id, each list ascending.
func (r *PostgresRepository) UserIDsByRecipe(ctx context.Context, recipeID int64) (map[int64][]int64, error) {
	query :=
		`SELECT rl.review_id, rl.user_id
		 FROM review_likes rl JOIN reviews r ON r.id = rl.review_id
		 WHERE r.recipe_id = $1
		 ORDER BY rl.review_id, rl.user_id`

	rows, err := r.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := map[int64][]int64{}
	for rows.Next() {
		var reviewID, userID int64
		if err := rows.Scan(&reviewID, &userID); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result[reviewID] = append(result[reviewID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
