package reviews

import (
	"context"

	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, review *models.Review) (*models.Review, error)
	Get(ctx context.Context, id int64) (*models.Review, error)
	Update(ctx context.Context, id, authorID, recipeID int64, rating int, content string) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteByRecipe(ctx context.Context, recipeID int64) (int64, error)
	Stats(ctx context.Context, recipeID int64) (models.ReviewStats, error)
	ListByRecipe(ctx context.Context, recipeID int64) ([]models.ReviewListing, error)
}
