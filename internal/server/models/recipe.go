package models

import "time"

// Recipe is a row of the recipes table. AggregatedRating is nil when the
// recipe has no reviews; it and ReviewCount are written only by the rating
// aggregator.
type Recipe struct {
	ID               int64
	OwnerID          int64
	Name             string
	Description      string
	Category         string
	CookTime         string // ISO-8601 duration, e.g. PT30M
	PrepTime         string
	CreatedAt        time.Time
	AggregatedRating *float64
	ReviewCount      int64

	// TotalTime is CookTime plus PrepTime. It is computed on read.
	TotalTime string

	Nutrition   Nutrition
	Ingredients []string
}

// Nutrition holds per-recipe nutrition facts.
type Nutrition struct {
	Calories      float64
	Fat           float64
	Sugar         float64
	Protein       float64
	Carbohydrates float64
}

// RatingSummary is the result of recomputing a recipe's aggregate fields.
type RatingSummary struct {
	RecipeID         int64
	AggregatedRating *float64
	ReviewCount      int64
}

// CaloriePair is the two recipes whose calorie counts are closest.
// RecipeA has the lower id.
type CaloriePair struct {
	RecipeA    int64
	RecipeB    int64
	CaloriesA  float64
	CaloriesB  float64
	Difference float64
}

// IngredientCount is a recipe ranked by the number of its ingredients.
type IngredientCount struct {
	RecipeID        int64
	Name            string
	IngredientCount int64
}
