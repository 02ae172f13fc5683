package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/logging"
	"github.com/dmitrijs2005/gophrecipes/internal/server/config"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/repomanager"
)

// FollowService maintains the follow relation and the follower/following
// counters derived from it.
type FollowService struct {
	store
	gate Authenticator
}

func NewFollowService(db *sql.DB, m repomanager.RepositoryManager, gate Authenticator, cfg *config.Config, log logging.Logger) *FollowService {
	return &FollowService{store: newStore(db, m, cfg, log), gate: gate}
}

// Toggle follows followeeID when the caller does not follow it yet and
// unfollows it otherwise. The relation row and both counters change in one
// transaction; counters move only by the rows actually inserted or deleted.
//
// Toggle flips state on every call and must not be retried blindly after a
// transient failure.
func (s *FollowService) Toggle(ctx context.Context, info models.AuthInfo, followeeID int64) (models.FollowState, error) {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return models.Unfollowed, err
	}
	followerID := id.UserID
	if followerID == followeeID {
		return models.Unfollowed, fmt.Errorf("%w: user %d cannot follow itself", common.ErrorInvalidArgument, followerID)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var state models.FollowState
	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		follows := s.repomanager.Follows(tx)

		// Both rows stay locked against DeleteAccount until commit.
		locked, err := users.LockActivePair(ctx, followerID, followeeID)
		if err != nil {
			return err
		}
		if !slices.Contains(locked, followeeID) {
			return fmt.Errorf("%w: user %d", common.ErrorNotFound, followeeID)
		}
		if !slices.Contains(locked, followerID) {
			return fmt.Errorf("%w: user %d is deleted", common.ErrorUnauthenticated, followerID)
		}

		exists, err := follows.Exists(ctx, followerID, followeeID)
		if err != nil {
			return err
		}

		var changed bool
		delta := int64(1)
		if exists {
			state, delta = models.Unfollowed, -1
			changed, err = follows.Delete(ctx, followerID, followeeID)
		} else {
			state = models.Followed
			changed, err = follows.Insert(ctx, followerID, followeeID)
		}
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return users.AdjustFollowCounts(ctx, followerID, followeeID, delta)
	})
	if err != nil {
		return models.Unfollowed, s.fail(ctx, "toggle follow", err)
	}

	s.log.Info(ctx, "follow toggled", "user_id", followerID, "followee_id", followeeID, "state", state.String())
	return state, nil
}

// Reconcile rewrites the user's counters from the follow relation.
func (s *FollowService) Reconcile(ctx context.Context, userID int64) (models.FollowCounts, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	counts, err := s.repomanager.Users(s.db).RecountFollows(ctx, userID)
	if err != nil {
		return counts, s.fail(ctx, "reconcile follows", err)
	}
	return counts, nil
}
