package recipes

import (
	"context"

	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error)
	CreateNutrition(ctx context.Context, recipeID int64, n models.Nutrition) error
	AddIngredients(ctx context.Context, recipeID int64, names []string) error
	Get(ctx context.Context, id int64) (*models.Recipe, error)
	Ingredients(ctx context.Context, id int64) ([]string, error)
	OwnerID(ctx context.Context, id int64) (int64, error)
	Lock(ctx context.Context, id int64) error
	UpdateTimes(ctx context.Context, id int64, cookTime, prepTime *string) error
	SetAggregate(ctx context.Context, id int64, rating *float64, reviewCount int64) error
	Delete(ctx context.Context, id int64) (bool, error)
	ClosestCaloriePair(ctx context.Context) (*models.CaloriePair, error)
	MostIngredients(ctx context.Context, limit int) ([]models.IngredientCount, error)
}
