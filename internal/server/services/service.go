// Package services contains server-side business logic: the credential gate,
// the follow toggle, the review lifecycle with rating aggregation, recipe
// ownership checks and account management. Services own transaction
// boundaries; repositories only run statements against the DBTX they are
// given.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/logging"
	"github.com/dmitrijs2005/gophrecipes/internal/server/config"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/repomanager"
)

// Authenticator resolves presented credentials to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, info models.AuthInfo) (*models.Identity, error)
}

// store is embedded by every service.
type store struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	timeout     time.Duration
}

func newStore(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) store {
	if log == nil {
		log = logging.Nop{}
	}
	return store{db: db, repomanager: m, log: log, timeout: cfg.StatementTimeout}
}

func (s *store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return dbx.WithTimeout(ctx, s.timeout)
}

func (s *store) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, fn)
}

// inReadTx runs fn against one snapshot for reads spanning several
// statements.
func (s *store) inReadTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

// fail returns taxonomy errors unchanged. Anything else is a storage failure:
// it is logged and replaced by ErrorTransient or ErrorInternal so driver
// details never reach the caller.
func (s *store) fail(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if common.Kind(err) != common.ErrorInternal || errors.Is(err, common.ErrorInternal) {
		return err
	}

	if dbx.IsTransient(err) || errors.Is(err, context.Canceled) {
		s.log.Warn(ctx, "transient storage failure", "op", op, "error", err)
		return fmt.Errorf("%w: %s", common.ErrorTransient, op)
	}
	s.log.Error(ctx, "storage failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s", common.ErrorInternal, op)
}
