package follows

import "context"

type Repository interface {
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	Insert(ctx context.Context, followerID, followeeID int64) (bool, error)
	Delete(ctx context.Context, followerID, followeeID int64) (bool, error)
	DeleteAllFor(ctx context.Context, userID int64) (int64, error)
	FollowerIDs(ctx context.Context, userID int64) ([]int64, error)
	FollowingIDs(ctx context.Context, userID int64) ([]int64, error)
}
