package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/logging"
	"github.com/dmitrijs2005/gophrecipes/internal/server/config"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/repomanager"
	"github.com/sosodev/duration"
)

// RecipeService creates, reads and removes recipes. Mutations of an existing
// recipe are limited to its owner or an administrator.
type RecipeService struct {
	store
	gate Authenticator
}

func NewRecipeService(db *sql.DB, m repomanager.RepositoryManager, gate Authenticator, cfg *config.Config, log logging.Logger) *RecipeService {
	return &RecipeService{store: newStore(db, m, cfg, log), gate: gate}
}

// Create stores the recipe owned by the caller together with its nutrition
// and ingredient rows in one transaction.
func (s *RecipeService) Create(ctx context.Context, info models.AuthInfo, recipe *models.Recipe) (*models.Recipe, error) {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return nil, err
	}
	if recipe == nil || strings.TrimSpace(recipe.Name) == "" {
		return nil, fmt.Errorf("%w: recipe name is required", common.ErrorInvalidArgument)
	}
	for _, t := range []string{recipe.CookTime, recipe.PrepTime} {
		if _, err := parseDuration(t); err != nil {
			return nil, err
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	recipe.OwnerID = id.UserID
	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Recipes(tx)
		if _, err := repo.Create(ctx, recipe); err != nil {
			return err
		}
		if err := repo.CreateNutrition(ctx, recipe.ID, recipe.Nutrition); err != nil {
			return err
		}
		return repo.AddIngredients(ctx, recipe.ID, recipe.Ingredients)
	})
	if err != nil {
		return nil, s.fail(ctx, "create recipe", err)
	}

	s.log.Info(ctx, "recipe created", "recipe_id", recipe.ID, "user_id", id.UserID)
	return recipe, nil
}

// Get returns the recipe with nutrition, ingredients and total time.
func (s *RecipeService) Get(ctx context.Context, recipeID int64) (*models.Recipe, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo := s.repomanager.Recipes(s.db)
	recipe, err := repo.Get(ctx, recipeID)
	if err != nil {
		return nil, s.fail(ctx, "get recipe", err)
	}
	recipe.Ingredients, err = repo.Ingredients(ctx, recipeID)
	if err != nil {
		return nil, s.fail(ctx, "get recipe", err)
	}

	total, err := TotalTime(recipe.CookTime, recipe.PrepTime)
	if err != nil {
		s.log.Warn(ctx, "stored recipe time is not a valid duration", "recipe_id", recipeID, "error", err)
	} else {
		recipe.TotalTime = total
	}
	return recipe, nil
}

// ClosestCaloriePair returns the two recipes whose calorie counts differ
// least. It fails with NotFound when fewer than two recipes carry nutrition.
func (s *RecipeService) ClosestCaloriePair(ctx context.Context) (*models.CaloriePair, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pair, err := s.repomanager.Recipes(s.db).ClosestCaloriePair(ctx)
	if err != nil {
		return nil, s.fail(ctx, "closest calorie pair", err)
	}
	return pair, nil
}

// MostComplex returns up to limit recipes with the most ingredients.
func (s *RecipeService) MostComplex(ctx context.Context, limit int) ([]models.IngredientCount, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", common.ErrorInvalidArgument, limit)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ranked, err := s.repomanager.Recipes(s.db).MostIngredients(ctx, limit)
	if err != nil {
		return nil, s.fail(ctx, "most complex recipes", err)
	}
	return ranked, nil
}

// Delete removes the recipe and everything it owns: likes of its reviews,
// the reviews, ingredients and nutrition.
func (s *RecipeService) Delete(ctx context.Context, info models.AuthInfo, recipeID int64) error {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		recipes := s.repomanager.Recipes(tx)
		owner, err := recipes.OwnerID(ctx, recipeID)
		if err != nil {
			return err
		}
		if err := RequireOwner(id, owner); err != nil {
			return err
		}
		if _, err := s.repomanager.Likes(tx).DeleteByRecipe(ctx, recipeID); err != nil {
			return err
		}
		if _, err := s.repomanager.Reviews(tx).DeleteByRecipe(ctx, recipeID); err != nil {
			return err
		}
		ok, err := recipes.Delete(ctx, recipeID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: recipe %d", common.ErrorNotFound, recipeID)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, "delete recipe", err)
	}

	s.log.Info(ctx, "recipe deleted", "recipe_id", recipeID, "user_id", id.UserID)
	return nil
}

// UpdateTimes sets cook and/or prep time. Nil values are left unchanged;
// others must be ISO-8601 durations.
func (s *RecipeService) UpdateTimes(ctx context.Context, info models.AuthInfo, recipeID int64, cookTime, prepTime *string) error {
	id, err := s.gate.Authenticate(ctx, info)
	if err != nil {
		return err
	}
	for _, t := range []*string{cookTime, prepTime} {
		if t == nil {
			continue
		}
		if *t == "" {
			return fmt.Errorf("%w: empty duration", common.ErrorInvalidArgument)
		}
		if _, err := parseDuration(*t); err != nil {
			return err
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		recipes := s.repomanager.Recipes(tx)
		owner, err := recipes.OwnerID(ctx, recipeID)
		if err != nil {
			return err
		}
		if err := RequireOwner(id, owner); err != nil {
			return err
		}
		return recipes.UpdateTimes(ctx, recipeID, cookTime, prepTime)
	})
	if err != nil {
		return s.fail(ctx, "update recipe times", err)
	}

	s.log.Info(ctx, "recipe times updated", "recipe_id", recipeID, "user_id", id.UserID)
	return nil
}

// TotalTime adds two ISO-8601 durations. Empty strings count as zero.
func TotalTime(cookTime, prepTime string) (string, error) {
	cook, err := parseDuration(cookTime)
	if err != nil {
		return "", err
	}
	prep, err := parseDuration(prepTime)
	if err != nil {
		return "", err
	}
	return duration.Format(cook + prep), nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an ISO-8601 duration", common.ErrorInvalidArgument, s)
	}
	return d.ToTimeDuration(), nil
}
