package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a row of the reviews table.
type Review struct {
	ID        int64
	RecipeID  int64
	AuthorID  int64
	Rating    int
	Content   string
	CreatedAt time.Time
}

// Like is a row of the review_likes table.
type Like struct {
	ReviewID int64
	UserID   int64
}

// ReviewStats are the raw COUNT and SUM of ratings over a recipe's reviews.
type ReviewStats struct {
	Count int64
	Sum   int64
}

// ReviewSort selects the order of a recipe's review listing.
type ReviewSort int

const (
	// SortByDate lists the newest reviews first.
	SortByDate ReviewSort = iota
	// SortByLikes lists the most liked reviews first, newest first on ties.
	SortByLikes
)

// ReviewListing is a review as shown under its recipe.
type ReviewListing struct {
	Review
	AuthorName string
	LikerIDs   []int64
}
