package models

// FollowState is the outcome of a follow toggle.
type FollowState int

const (
	Unfollowed FollowState = iota
	Followed
)

func (s FollowState) String() string {
	if s == Followed {
		return "followed"
	}
	return "unfollowed"
}

// FollowCounts are the derived counters of one user.
type FollowCounts struct {
	Followers int64
	Following int64
}

// FollowRatio is a user ranked by follower count over following count.
type FollowRatio struct {
	UserID int64
	Name   string
	Ratio  float64
}
