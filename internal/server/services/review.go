package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/logging"
	"github.com/dmitrijs2005/gophrecipes/internal/server/config"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/repomanager"
)

// ReviewService owns the review lifecycle and review likes. Every review
// mutation is followed by a full recompute of the recipe's rating.
type ReviewService struct {
	store
	gate       Authenticator
	aggregator *RatingAggregator
	now        func() time.Time
}

func NewReviewService(db *sql.DB, m repomanager.RepositoryManager, gate Authenticator, aggregator *RatingAggregator, cfg *config.Config, log logging.Logger) *ReviewService {
	return &ReviewService{
		store:      newStore(db, m, cfg, log),
		gate:       gate,
		aggregator: aggregator,
		now:        time.Now,
	}
}

func validateRating(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return fmt.Errorf("%w: rating %d outside [%d, %d]", common.ErrorInvalidArgument, rating, models.MinRating, models.MaxRating)
	}
	return nil
}

// Add stores a review by the caller and recomputes the recipe's rating in the
// same transaction.
func (s *ReviewService) Add(ctx context.Context, info models.AuthInfo, recipeID int64, rating int, text string) (int64, error) {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return 0, err
	}
	if err := validateRating(rating); err != nil {
		return 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	review := &models.Review{
		RecipeID:  recipeID,
		AuthorID:  id.UserID,
		Rating:    rating,
		Content:   text,
		CreatedAt: s.now().UTC(),
	}
	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Recipes(tx).OwnerID(ctx, recipeID); err != nil {
			return err
		}
		if _, err := s.repomanager.Reviews(tx).Create(ctx, review); err != nil {
			return err
		}
		_, err := s.aggregator.apply(ctx, tx, recipeID)
		return err
	})
	if err != nil {
		return 0, s.fail(ctx, "add review", err)
	}

	s.log.Info(ctx, "review added", "review_id", review.ID, "recipe_id", recipeID, "user_id", id.UserID)
	return review.ID, nil
}

// Edit changes rating and text of the caller's own review on recipeID.
func (s *ReviewService) Edit(ctx context.Context, info models.AuthInfo, recipeID, reviewID int64, rating int, text string) error {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return err
	}
	if err := validateRating(rating); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		reviews := s.repomanager.Reviews(tx)
		if err := s.checkAuthor(ctx, tx, id.UserID, recipeID, reviewID); err != nil {
			return err
		}
		ok, err := reviews.Update(ctx, reviewID, id.UserID, recipeID, rating, text)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: review %d", common.ErrorNotFound, reviewID)
		}
		_, err = s.aggregator.apply(ctx, tx, recipeID)
		return err
	})
	if err != nil {
		return s.fail(ctx, "edit review", err)
	}

	s.log.Info(ctx, "review edited", "review_id", reviewID, "recipe_id", recipeID, "user_id", id.UserID)
	return nil
}

// Delete removes the caller's review together with its likes, then
// recomputes the recipe's rating once the removal is committed.
func (s *ReviewService) Delete(ctx context.Context, info models.AuthInfo, recipeID, reviewID int64) error {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.checkAuthor(ctx, tx, id.UserID, recipeID, reviewID); err != nil {
			return err
		}
		if _, err := s.repomanager.Likes(tx).DeleteByReview(ctx, reviewID); err != nil {
			return err
		}
		ok, err := s.repomanager.Reviews(tx).Delete(ctx, reviewID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: review %d", common.ErrorNotFound, reviewID)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, "delete review", err)
	}

	s.log.Info(ctx, "review deleted", "review_id", reviewID, "recipe_id", recipeID, "user_id", id.UserID)

	if _, err := s.aggregator.Recompute(ctx, recipeID); err != nil {
		s.log.Error(ctx, "rating recompute after review delete failed", "recipe_id", recipeID, "error", err)
		return err
	}
	return nil
}

// Like records the caller's like and returns the review's like count. Liking
// twice is a no-op.
func (s *ReviewService) Like(ctx context.Context, info models.AuthInfo, reviewID int64) (int64, error) {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	review, err := s.repomanager.Reviews(s.db).Get(ctx, reviewID)
	if err != nil {
		return 0, s.fail(ctx, "like review", err)
	}
	if review.AuthorID == id.UserID {
		return 0, fmt.Errorf("%w: user %d cannot like own review %d", common.ErrorForbidden, id.UserID, reviewID)
	}

	likes := s.repomanager.Likes(s.db)
	inserted, err := likes.Insert(ctx, reviewID, id.UserID)
	if err != nil {
		return 0, s.fail(ctx, "like review", err)
	}
	if inserted {
		s.log.Info(ctx, "review liked", "review_id", reviewID, "user_id", id.UserID)
	}
	return s.count(ctx, reviewID)
}

// Unlike removes the caller's like if there is one and returns the review's
// like count.
func (s *ReviewService) Unlike(ctx context.Context, info models.AuthInfo, reviewID int64) (int64, error) {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repomanager.Reviews(s.db).Get(ctx, reviewID); err != nil {
		return 0, s.fail(ctx, "unlike review", err)
	}

	removed, err := s.repomanager.Likes(s.db).Delete(ctx, reviewID, id.UserID)
	if err != nil {
		return 0, s.fail(ctx, "unlike review", err)
	}
	if removed {
		s.log.Info(ctx, "review unliked", "review_id", reviewID, "user_id", id.UserID)
	}
	return s.count(ctx, reviewID)
}

// Likers returns the ids of users who liked the review.
func (s *ReviewService) Likers(ctx context.Context, reviewID int64) ([]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ids, err := s.repomanager.Likes(s.db).UserIDs(ctx, reviewID)
	if err != nil {
		return nil, s.fail(ctx, "list likers", err)
	}
	return ids, nil
}

// ListByRecipe returns every review of the recipe with its author's name and
// likers, ordered by sort. Reviews and likes are read from one snapshot.
func (s *ReviewService) ListByRecipe(ctx context.Context, recipeID int64, sort models.ReviewSort) ([]models.ReviewListing, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var listing []models.ReviewListing
	err := s.inReadTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Recipes(tx).OwnerID(ctx, recipeID); err != nil {
			return err
		}
		var err error
		if listing, err = s.repomanager.Reviews(tx).ListByRecipe(ctx, recipeID); err != nil {
			return err
		}
		likers, err := s.repomanager.Likes(tx).UserIDsByRecipe(ctx, recipeID)
		if err != nil {
			return err
		}
		for i := range listing {
			listing[i].LikerIDs = likers[listing[i].ID]
			if listing[i].LikerIDs == nil {
				listing[i].LikerIDs = []int64{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "list reviews", err)
	}

	if sort == models.SortByLikes {
		slices.SortStableFunc(listing, func(a, b models.ReviewListing) int {
			return len(b.LikerIDs) - len(a.LikerIDs)
		})
	}
	return listing, nil
}

func (s *ReviewService) count(ctx context.Context, reviewID int64) (int64, error) {
	n, err := s.repomanager.Likes(s.db).Count(ctx, reviewID)
	if err != nil {
		return 0, s.fail(ctx, "count likes", err)
	}
	return n, nil
}

// checkAuthor loads the review and requires it to be userID's review on
// recipeID.
func (s *ReviewService) checkAuthor(ctx context.Context, tx dbx.DBTX, userID, recipeID, reviewID int64) error {
	review, err := s.repomanager.Reviews(tx).Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.AuthorID != userID || review.RecipeID != recipeID {
		return fmt.Errorf("%w: review %d", common.ErrorForbidden, reviewID)
	}
	return nil
}
