// Package recipes provides the PostgreSQL repository for recipes and the rows
// they own outright: nutrition facts and ingredient names.
package recipes

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

// Create inserts the recipe row with no reviews and fills in its id and
// creation time.
func (r *PostgresRepository) Create(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error) {
	query :=
		`INSERT INTO recipes (owner_id, name, description, category, cook_time, prep_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		recipe.OwnerID, recipe.Name, recipe.Description, recipe.Category,
		nullable(recipe.CookTime), nullable(recipe.PrepTime),
	).Scan(&recipe.ID, &recipe.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	recipe.AggregatedRating = nil
	recipe.ReviewCount = 0
	return recipe, nil
}

func (r *PostgresRepository) CreateNutrition(ctx context.Context, recipeID int64, n models.Nutrition) error {
	query :=
		`INSERT INTO nutrition (recipe_id, calories, fat, sugar, protein, carbohydrates)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(ctx, query, recipeID, n.Calories, n.Fat, n.Sugar, n.Protein, n.Carbohydrates); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// AddIngredients inserts one row per distinct name.
func (r *PostgresRepository) AddIngredients(ctx context.Context, recipeID int64, names []string) error {
	query :=
		`INSERT INTO recipe_ingredients (recipe_id, ingredient_name) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`

	for _, name := range names {
		if _, err := r.db.ExecContext(ctx, query, recipeID, name); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// Get returns the recipe with its nutrition facts. Ingredients are loaded
// separately.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Recipe, error) {
	query :=
		`SELECT r.id, r.owner_id, r.name, r.description, r.category,
		        COALESCE(r.cook_time, ''), COALESCE(r.prep_time, ''), r.created_at,
		        r.aggregated_rating, r.review_count,
		        COALESCE(n.calories, 0), COALESCE(n.fat, 0), COALESCE(n.sugar, 0),
		        COALESCE(n.protein, 0), COALESCE(n.carbohydrates, 0)
		 FROM recipes r LEFT JOIN nutrition n ON n.recipe_id = r.id
		 WHERE r.id = $1`

	rec := &models.Recipe{}
	var rating sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.OwnerID, &rec.Name, &rec.Description, &rec.Category,
		&rec.CookTime, &rec.PrepTime, &rec.CreatedAt,
		&rating, &rec.ReviewCount,
		&rec.Nutrition.Calories, &rec.Nutrition.Fat, &rec.Nutrition.Sugar,
		&rec.Nutrition.Protein, &rec.Nutrition.Carbohydrates,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if rating.Valid {
		v := rating.Float64
		rec.AggregatedRating = &v
	}
	return rec, nil
}

func (r *PostgresRepository) Ingredients(ctx context.Context, id int64) ([]string, error) {
	query := `SELECT ingredient_name FROM recipe_ingredients WHERE recipe_id = $1 ORDER BY ingredient_name`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) OwnerID(ctx context.Context, id int64) (int64, error) {
	query := `SELECT owner_id FROM recipes WHERE id = $1`

	var owner int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return owner, nil
}

// Lock takes a row lock on the recipe for the rest of the transaction, so
// statements issued after it observe every review committed before it.
func (r *PostgresRepository) Lock(ctx context.Context, id int64) error {
	var locked int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM recipes WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateTimes sets the non-nil durations.
func (r *PostgresRepository) UpdateTimes(ctx context.Context, id int64, cookTime, prepTime *string) error {
	query :=
		`UPDATE recipes SET cook_time = COALESCE($2, cook_time), prep_time = COALESCE($3, prep_time)
		 WHERE id = $1`

	var cook, prep any
	if cookTime != nil {
		cook = *cookTime
	}
	if prepTime != nil {
		prep = *prepTime
	}
	return r.execOne(ctx, query, id, cook, prep)
}

// SetAggregate writes the derived rating fields. A nil rating stores NULL.
func (r *PostgresRepository) SetAggregate(ctx context.Context, id int64, rating *float64, reviewCount int64) error {
	query := `UPDATE recipes SET aggregated_rating = $2, review_count = $3 WHERE id = $1`

	var v any
	if rating != nil {
		v = *rating
	}
	return r.execOne(ctx, query, id, v, reviewCount)
}

// Delete removes the recipe together with its ingredients and nutrition.
// Reviews and their likes must already be gone.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	for _, q := range []string{
		`DELETE FROM recipe_ingredients WHERE recipe_id = $1`,
		`DELETE FROM nutrition WHERE recipe_id = $1`,
	} {
		if _, err := r.db.ExecContext(ctx, q, id); err != nil {
			return false, fmt.Errorf("db error: %w", err)
		}
	}

	err := r.execOne(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ClosestCaloriePair returns the two recipes with the smallest calorie
// difference, lowest ids first on ties.
func (r *PostgresRepository) ClosestCaloriePair(ctx context.Context) (*models.CaloriePair, error) {
	query :=
		`SELECT n1.recipe_id, n2.recipe_id, n1.calories, n2.calories,
		        ABS(n1.calories - n2.calories) AS diff
		 FROM nutrition n1 JOIN nutrition n2 ON n1.recipe_id < n2.recipe_id
		 ORDER BY diff, n1.recipe_id, n2.recipe_id
		 LIMIT 1`

	p := &models.CaloriePair{}
	err := r.db.QueryRowContext(ctx, query).Scan(&p.RecipeA, &p.RecipeB, &p.CaloriesA, &p.CaloriesB, &p.Difference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// MostIngredients ranks recipes by ingredient count, lowest id first on
// ties. Recipes without ingredients are not ranked.
func (r *PostgresRepository) MostIngredients(ctx context.Context, limit int) ([]models.IngredientCount, error) {
	query :=
		`SELECT r.id, r.name, COUNT(*) AS cnt
		 FROM recipes r JOIN recipe_ingredients ri ON ri.recipe_id = r.id
		 GROUP BY r.id, r.name
		 ORDER BY cnt DESC, r.id
		 LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.IngredientCount{}
	for rows.Next() {
		var c models.IngredientCount
		if err := rows.Scan(&c.RecipeID, &c.Name, &c.IngredientCount); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// execOne runs a statement that must touch exactly the row with the given id.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
