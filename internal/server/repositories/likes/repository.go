package likes

import "context"

type Repository interface {
	Insert(ctx context.Context, reviewID, userID int64) (bool, error)
	Delete(ctx context.Context, reviewID, userID int64) (bool, error)
	Count(ctx context.Context, reviewID int64) (int64, error)
	UserIDs(ctx context.Context, reviewID int64) ([]int64, error)
	DeleteByReview(ctx context.Context, reviewID int64) (int64, error)
	DeleteByRecipe(ctx context.Context, recipeID int64) (int64, error)
	UserIDsByRecipe(ctx context.Context, recipeID int64) (map[int64][]int64, error)
}
