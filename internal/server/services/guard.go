package services

import (
	"fmt"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
)

// RequireOwner fails with common.ErrorForbidden unless the identity owns the
// resource or is an administrator.
func RequireOwner(id *models.Identity, ownerID int64) error {
	if id == nil {
		return common.ErrorUnauthenticated
	}
	if id.Admin || id.UserID == ownerID {
		return nil
	}
	return fmt.Errorf("%w: user %d does not own the resource", common.ErrorForbidden, id.UserID)
}
