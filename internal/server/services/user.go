package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/logging"
	"github.com/dmitrijs2005/gophrecipes/internal/server/config"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/repomanager"
)

// UserService reads profiles and manages accounts.
type UserService struct {
	store
	gate Authenticator
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, gate Authenticator, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{store: newStore(db, m, cfg, log), gate: gate}
}

// Get returns an active user's profile with both sides of its follow edges.
func (s *UserService) Get(ctx context.Context, userID int64) (*models.UserProfile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "get user", err)
	}
	if user.Deleted {
		return nil, fmt.Errorf("%w: user %d", common.ErrorNotFound, userID)
	}

	follows := s.repomanager.Follows(s.db)
	followers, err := follows.FollowerIDs(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "get user", err)
	}
	following, err := follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "get user", err)
	}

	user.PasswordHash = ""
	return &models.UserProfile{User: *user, FollowerIDs: followers, FollowingIDs: following}, nil
}

// HighestFollowRatio returns the active user with the most followers per
// followed user. Users who follow nobody are skipped; NotFound means no user
// qualifies.
func (s *UserService) HighestFollowRatio(ctx context.Context) (*models.FollowRatio, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	top, err := s.repomanager.Users(s.db).HighestFollowRatio(ctx)
	if err != nil {
		return nil, s.fail(ctx, "highest follow ratio", err)
	}
	return top, nil
}

// UpdateProfile changes the caller's gender and/or age. Nil fields are left
// unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, info models.AuthInfo, gender *string, age *int) error {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return err
	}
	if gender != nil {
		switch *gender {
		case models.GenderMale, models.GenderFemale, models.GenderUnknown:
		default:
			return fmt.Errorf("%w: unknown gender %q", common.ErrorInvalidArgument, *gender)
		}
	}
	if age != nil && *age < 0 {
		return fmt.Errorf("%w: negative age", common.ErrorInvalidArgument)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ok, err := s.repomanager.Users(s.db).UpdateProfile(ctx, id.UserID, gender, age)
	if err != nil {
		return s.fail(ctx, "update profile", err)
	}
	if !ok {
		return fmt.Errorf("%w: user %d", common.ErrorNotFound, id.UserID)
	}
	return nil
}

// DeleteAccount soft-deletes userID and removes every follow edge it takes
// part in, adjusting the counters of the users on the other side. Only the
// user itself or an administrator may do this. The user row is locked first,
// so a concurrent Toggle either commits before the edges are read or sees
// the user as deleted.
func (s *UserService) DeleteAccount(ctx context.Context, info models.AuthInfo, userID int64) error {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return err
	}
	if err := RequireOwner(id, userID); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var edges int64
	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		locked, err := users.LockForDelete(ctx, userID)
		if err != nil {
			return err
		}
		if !locked {
			return fmt.Errorf("%w: user %d", common.ErrorNotFound, userID)
		}
		if err := users.ReleaseFollowEdges(ctx, userID); err != nil {
			return err
		}
		if edges, err = s.repomanager.Follows(tx).DeleteAllFor(ctx, userID); err != nil {
			return err
		}
		ok, err := users.SoftDelete(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user %d", common.ErrorNotFound, userID)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, "delete account", err)
	}

	s.log.Info(ctx, "account deleted", "user_id", userID, "by", id.UserID, "follow_edges", edges)
	return nil
}
