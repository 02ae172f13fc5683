package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/logging"
	"github.com/dmitrijs2005/gophrecipes/internal/server/auth"
	"github.com/dmitrijs2005/gophrecipes/internal/server/config"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/repomanager"
)

// birthdayLayout is the only accepted birthday format.
const birthdayLayout = "2006-01-02"

// RegisterRequest describes a new account.
type RegisterRequest struct {
	Name     string
	Password string
	Gender   string // MALE, FEMALE or UNKNOWN; empty means UNKNOWN
	Birthday string // YYYY-MM-DD; empty leaves age at 0
}

// AuthService checks credentials and issues access tokens. Authenticate has
// no side effects.
type AuthService struct {
	store
	hasher                      auth.PasswordHasher
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	now                         func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, cfg *config.Config, log logging.Logger) *AuthService {
	return &AuthService{
		store:                       newStore(db, m, cfg, log),
		hasher:                      hasher,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		now:                         time.Now,
	}
}

// Authenticate resolves the caller. A token, when present, is resolved to a
// user id and must agree with a non-zero UserID; otherwise UserID and Password
// are checked against the stored hash. Unknown, deleted or mismatched
// credentials all yield common.ErrorUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, info models.AuthInfo) (*models.Identity, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	userID := info.UserID
	if info.Token != "" {
		id, err := auth.GetUserIDFromToken(info.Token, s.jwtSecret)
		if err != nil {
			return nil, err
		}
		if userID != 0 && userID != id {
			return nil, fmt.Errorf("%w: token issued for another user", common.ErrorUnauthenticated)
		}
		userID = id
	} else if userID == 0 {
		return nil, fmt.Errorf("%w: missing user id", common.ErrorUnauthenticated)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, s.fail(ctx, "authenticate", err)
	}
	if user.Deleted {
		return nil, common.ErrorUnauthenticated
	}

	if info.Token == "" {
		ok, err := s.hasher.Verify(user.PasswordHash, info.Password)
		if err != nil {
			s.log.Warn(ctx, "unusable password hash", "user_id", userID, "error", err)
			return nil, common.ErrorUnauthenticated
		}
		if !ok {
			return nil, common.ErrorUnauthenticated
		}
	}

	admin, err := repo.HasRole(ctx, userID, models.RoleAdministrator)
	if err != nil {
		return nil, s.fail(ctx, "authenticate", err)
	}
	return &models.Identity{UserID: userID, Admin: admin}, nil
}

// Register creates the user and grants it the RegisteredUser role in one
// transaction. A taken name yields common.ErrorConflict.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (int64, error) {
	if strings.TrimSpace(req.Name) == "" || req.Password == "" {
		return 0, fmt.Errorf("%w: name and password are required", common.ErrorInvalidArgument)
	}

	gender := strings.ToUpper(req.Gender)
	switch gender {
	case "":
		gender = models.GenderUnknown
	case models.GenderMale, models.GenderFemale, models.GenderUnknown:
	default:
		return 0, fmt.Errorf("%w: unknown gender %q", common.ErrorInvalidArgument, req.Gender)
	}

	age, err := ageFromBirthday(req.Birthday, s.now())
	if err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return 0, common.ErrorInternal
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var id int64
	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		u, err := repo.Create(ctx, &models.User{Name: req.Name, PasswordHash: hash, Gender: gender, Age: age})
		if err != nil {
			return err
		}
		id = u.ID
		return repo.AssignRole(ctx, u.ID, models.RoleRegisteredUser)
	})
	if err != nil {
		return 0, s.fail(ctx, "register", err)
	}

	s.log.Info(ctx, "user registered", "user_id", id)
	return id, nil
}

// Login checks the password and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, info models.AuthInfo) (string, error) {
	info.Token = ""
	id, err := s.Authenticate(ctx, info)
	if err != nil {
		return "", err
	}

	token, err := auth.GenerateToken(id.UserID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		s.log.Error(ctx, "token signing failed", "user_id", id.UserID, "error", err)
		return "", common.ErrorInternal
	}
	return token, nil
}

// ageFromBirthday returns full years between birthday and now.
func ageFromBirthday(birthday string, now time.Time) (int, error) {
	if birthday == "" {
		return 0, nil
	}
	b, err := time.Parse(birthdayLayout, birthday)
	if err != nil {
		return 0, fmt.Errorf("%w: birthday must be YYYY-MM-DD", common.ErrorInvalidArgument)
	}

	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		return 0, fmt.Errorf("%w: birthday is in the future", common.ErrorInvalidArgument)
	}
	return age, nil
}
