// Package models defines server-side data models persisted in the database
// and the plain records exchanged with callers of the services.
package models

import "time"

// Gender values stored for users.
const (
	GenderUnknown = "UNKNOWN"
	GenderMale    = "MALE"
	GenderFemale  = "FEMALE"
)

// Role names seeded by the initial migration.
const (
	RoleRegisteredUser = "RegisteredUser"
	RoleAdministrator  = "Administrator"
)

// User is a row of the users table. FollowerCount and FollowingCount are
// derived from the follows relation and are only changed together with it.
type User struct {
	ID             int64
	Name           string
	PasswordHash   string
	Gender         string
	Age            int
	FollowerCount  int64
	FollowingCount int64
	Deleted        bool
	CreatedAt      time.Time
}

// UserProfile is a user together with the ids on both sides of its follow
// edges.
type UserProfile struct {
	User
	FollowerIDs  []int64
	FollowingIDs []int64
}

// AuthInfo carries the credentials presented by a caller. When Token is set
// it takes precedence over UserID/Password.
type AuthInfo struct {
	UserID   int64
	Password string
	Token    string
}

// Identity is an authenticated caller.
type Identity struct {
	UserID int64
	Admin  bool
}
