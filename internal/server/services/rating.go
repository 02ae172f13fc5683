package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/logging"
	"github.com/dmitrijs2005/gophrecipes/internal/server/config"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/repomanager"
)

// RatingAggregator rewrites a recipe's aggregated_rating and review_count
// from its current reviews. It never applies deltas.
type RatingAggregator struct {
	store
}

func NewRatingAggregator(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *RatingAggregator {
	return &RatingAggregator{store: newStore(db, m, cfg, log)}
}

// Recompute runs the aggregation in its own transaction.
func (a *RatingAggregator) Recompute(ctx context.Context, recipeID int64) (*models.RatingSummary, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var summary *models.RatingSummary
	err := a.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		summary, err = a.apply(ctx, tx, recipeID)
		return err
	})
	if err != nil {
		return nil, a.fail(ctx, "recompute rating", err)
	}
	return summary, nil
}

// apply recomputes inside the caller's transaction. The recipe row is locked
// first so concurrent recomputes of one recipe serialize.
func (a *RatingAggregator) apply(ctx context.Context, tx dbx.DBTX, recipeID int64) (*models.RatingSummary, error) {
	recipes := a.repomanager.Recipes(tx)
	if err := recipes.Lock(ctx, recipeID); err != nil {
		return nil, err
	}

	stats, err := a.repomanager.Reviews(tx).Stats(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	avg := RoundedAverage(stats.Sum, stats.Count)
	if err := recipes.SetAggregate(ctx, recipeID, avg, stats.Count); err != nil {
		return nil, err
	}

	a.log.Debug(ctx, "rating recomputed", "recipe_id", recipeID, "review_count", stats.Count)
	return &models.RatingSummary{RecipeID: recipeID, AggregatedRating: avg, ReviewCount: stats.Count}, nil
}

// RoundedAverage returns sum/count rounded half-up to two decimals, or nil
// when count is zero. Rounding is done on integers so that e.g. 0.125 yields
// 0.13. sum and count must not be negative.
func RoundedAverage(sum, count int64) *float64 {
	if count <= 0 {
		return nil
	}
	hundredths := (sum*200 + count) / (2 * count)
	v := float64(hundredths) / 100
	return &v
}
