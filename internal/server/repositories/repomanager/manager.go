package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/follows"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/likes"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/recipes"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/reviews"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Follows(db dbx.DBTX) follows.Repository
	Recipes(db dbx.DBTX) recipes.Repository
	Reviews(db dbx.DBTX) reviews.Repository
	Likes(db dbx.DBTX) likes.Repository
}
