// Package reviews provides the PostgreSQL repository for recipe reviews.
package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the review with the supplied creation time and fills in its id.
func (r *PostgresRepository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	query :=
		`INSERT INTO reviews (recipe_id, author_id, rating, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		review.RecipeID, review.AuthorID, review.Rating, review.Content, review.CreatedAt,
	).Scan(&review.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return review, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Review, error) {
	query := `SELECT id, recipe_id, author_id, rating, content, created_at FROM reviews WHERE id = $1`

	rv := &models.Review{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rv.ID, &rv.RecipeID, &rv.AuthorID, &rv.Rating, &rv.Content, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rv, nil
}

// Update rewrites rating and content only when the review belongs to both the
// given author and recipe. It reports whether a row was changed.
func (r *PostgresRepository) Update(ctx context.Context, id, authorID, recipeID int64, rating int, content string) (bool, error) {
	query :=
		`UPDATE reviews SET rating = $4, content = $5
		 WHERE id = $1 AND author_id = $2 AND recipe_id = $3`

	return r.exec(ctx, query, id, authorID, recipeID, rating, content)
}

// Delete removes the review row. Its likes must be removed first.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
}

func (r *PostgresRepository) DeleteByRecipe(ctx context.Context, recipeID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE recipe_id = $1`, recipeID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// Stats counts the recipe's reviews and sums their ratings.
func (r *PostgresRepository) Stats(ctx context.Context, recipeID int64) (models.ReviewStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(rating), 0) FROM reviews WHERE recipe_id = $1`

	var s models.ReviewStats
	if err := r.db.QueryRowContext(ctx, query, recipeID).Scan(&s.Count, &s.Sum); err != nil {
		return s, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// ListByRecipe returns the recipe's reviews with their authors' names, newest
// first. LikerIDs is left empty.
func (r *PostgresRepository) ListByRecipe(ctx context.Context, recipeID int64) ([]models.ReviewListing, error) {
	query :=
		`SELECT r.id, r.recipe_id, r.author_id, u.name, r.rating, r.content, r.created_at
		 FROM reviews r JOIN users u ON u.id = r.author_id
		 WHERE r.recipe_id = $1
		 ORDER BY r.created_at DESC, r.id DESC`

	rows, err := r.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.ReviewListing{}
	for rows.Next() {
		var l models.ReviewListing
		if err := rows.Scan(&l.ID, &l.RecipeID, &l.AuthorID, &l.AuthorName, &l.Rating, &l.Content, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
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
