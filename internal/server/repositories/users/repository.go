package users

import (
	"context"

	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	AssignRole(ctx context.Context, userID int64, role string) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	LockActivePair(ctx context.Context, a, b int64) ([]int64, error)
	LockForDelete(ctx context.Context, id int64) (bool, error)
	HasRole(ctx context.Context, id int64, role string) (bool, error)
	AdjustFollowCounts(ctx context.Context, followerID, followeeID, delta int64) error
	RecountFollows(ctx context.Context, id int64) (models.FollowCounts, error)
	ReleaseFollowEdges(ctx context.Context, id int64) error
	UpdateProfile(ctx context.Context, id int64, gender *string, age *int) (bool, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
	HighestFollowRatio(ctx context.Context) (*models.FollowRatio, error)
}
