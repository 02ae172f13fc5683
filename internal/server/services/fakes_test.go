package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophrecipes/internal/common"
	"github.com/dmitrijs2005/gophrecipes/internal/dbx"
	"github.com/dmitrijs2005/gophrecipes/internal/server/config"
	"github.com/dmitrijs2005/gophrecipes/internal/server/models"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/follows"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/likes"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/recipes"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/reviews"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectCommits(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		StatementTimeout:            time.Second,
	}
}

// fakeGate trusts AuthInfo.UserID; ids listed in admins get the capability.
type fakeGate struct {
	admins map[int64]bool
	err    error
}

func (g *fakeGate) Authenticate(_ context.Context, info models.AuthInfo) (*models.Identity, error) {
	if g.err != nil {
		return nil, g.err
	}
	if info.UserID == 0 {
		return nil, common.ErrorUnauthenticated
	}
	return &models.Identity{UserID: info.UserID, Admin: g.admins[info.UserID]}, nil
}

func as(id int64) models.AuthInfo { return models.AuthInfo{UserID: id, Password: "pw"} }

// --- in-memory store ---

type pair [2]int64

type memDB struct {
	mu sync.Mutex

	nextID      int64
	users       map[int64]*models.User
	roles       map[int64]map[string]bool
	follows     map[pair]bool
	recipes     map[int64]*models.Recipe
	ingredients map[int64][]string
	reviews     map[int64]*models.Review
	likes       map[pair]bool // review, user

	// fail injects an error into the named repository method.
	fail map[string]error
	// staleExists makes Follows.Exists miss rows, as when a concurrent
	// transaction commits the same edge between the check and the insert.
	staleExists bool

	// holdLocks keeps rows locked by LockForDelete until releaseLocks, as if
	// the deleting transaction were still open. LockActivePair waits on them.
	holdLocks bool
	rowLocks  map[int64]chan struct{}
	waiters   int
	// beforeDeleteAllFor runs at the start of Follows.DeleteAllFor.
	beforeDeleteAllFor func()
	// beforeLikeInsert runs at the start of Likes.Insert.
	beforeLikeInsert func()
}

func newMemDB() *memDB {
	return &memDB{
		nextID:      100,
		users:       map[int64]*models.User{},
		roles:       map[int64]map[string]bool{},
		follows:     map[pair]bool{},
		recipes:     map[int64]*models.Recipe{},
		ingredients: map[int64][]string{},
		reviews:     map[int64]*models.Review{},
		likes:       map[pair]bool{},
		fail:        map[string]error{},
		rowLocks:    map[int64]chan struct{}{},
	}
}

// waitRow blocks while id is held by LockForDelete.
func (m *memDB) waitRow(ctx context.Context, id int64) error {
	m.mu.Lock()
	ch := m.rowLocks[id]
	if ch != nil {
		m.waiters++
	}
	m.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *memDB) waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiters
}

func (m *memDB) releaseLocks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.rowLocks {
		close(ch)
		delete(m.rowLocks, id)
	}
}

func (m *memDB) injected(name string) error { return m.fail[name] }

func (m *memDB) addUser(id int64, name string) {
	m.users[id] = &models.User{ID: id, Name: name, Gender: models.GenderUnknown}
}

func (m *memDB) addRecipe(id, owner int64) {
	m.recipes[id] = &models.Recipe{ID: id, OwnerID: owner, Name: fmt.Sprintf("recipe-%d", id)}
}

func (m *memDB) addReview(id, recipeID, author int64, rating int) {
	m.reviews[id] = &models.Review{ID: id, RecipeID: recipeID, AuthorID: author, Rating: rating}
}

type fakeRepoManager struct{ m *memDB }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return &memUsers{f.m} }
func (f *fakeRepoManager) Follows(dbx.DBTX) follows.Repository          { return &memFollows{f.m} }
func (f *fakeRepoManager) Recipes(dbx.DBTX) recipes.Repository          { return &memRecipes{f.m} }
func (f *fakeRepoManager) Reviews(dbx.DBTX) reviews.Repository          { return &memReviews{f.m} }
func (f *fakeRepoManager) Likes(dbx.DBTX) likes.Repository              { return &memLikes{f.m} }

// users

type memUsers struct{ m *memDB }

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Users.Create"); err != nil {
		return nil, err
	}
	for _, x := range r.m.users {
		if x.Name == u.Name {
			return nil, fmt.Errorf("%w: user name %q is taken", common.ErrorConflict, u.Name)
		}
	}
	r.m.nextID++
	u.ID = r.m.nextID
	cp := *u
	r.m.users[u.ID] = &cp
	return u, nil
}

func (r *memUsers) AssignRole(_ context.Context, userID int64, role string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Users.AssignRole"); err != nil {
		return err
	}
	if r.m.roles[userID] == nil {
		r.m.roles[userID] = map[string]bool{}
	}
	r.m.roles[userID][role] = true
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) LockActivePair(ctx context.Context, a, b int64) ([]int64, error) {
	for _, id := range []int64{a, b} {
		if err := r.m.waitRow(ctx, id); err != nil {
			return nil, err
		}
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Users.LockActivePair"); err != nil {
		return nil, err
	}
	out := []int64{}
	for _, id := range []int64{a, b} {
		if u, ok := r.m.users[id]; ok && !u.Deleted {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (r *memUsers) LockForDelete(_ context.Context, id int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok || u.Deleted {
		return false, nil
	}
	if r.m.holdLocks && r.m.rowLocks[id] == nil {
		r.m.rowLocks[id] = make(chan struct{})
	}
	return true, nil
}

func (r *memUsers) HasRole(_ context.Context, id int64, role string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Users.HasRole"); err != nil {
		return false, err
	}
	return r.m.roles[id][role], nil
}

func (r *memUsers) AdjustFollowCounts(_ context.Context, followerID, followeeID, delta int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Users.AdjustFollowCounts"); err != nil {
		return err
	}
	a, okA := r.m.users[followerID]
	b, okB := r.m.users[followeeID]
	if !okA || !okB {
		return fmt.Errorf("follow counters: expected 2 rows")
	}
	a.FollowingCount += delta
	b.FollowerCount += delta
	return nil
}

func (r *memUsers) RecountFollows(_ context.Context, id int64) (models.FollowCounts, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return models.FollowCounts{}, common.ErrorNotFound
	}
	var c models.FollowCounts
	for p := range r.m.follows {
		if p[1] == id {
			c.Followers++
		}
		if p[0] == id {
			c.Following++
		}
	}
	u.FollowerCount, u.FollowingCount = c.Followers, c.Following
	return c, nil
}

func (r *memUsers) ReleaseFollowEdges(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for p := range r.m.follows {
		if u := r.m.users[p[1]]; p[0] == id && !u.Deleted {
			u.FollowerCount--
		}
		if u := r.m.users[p[0]]; p[1] == id && !u.Deleted {
			u.FollowingCount--
		}
	}
	return nil
}

func (r *memUsers) UpdateProfile(_ context.Context, id int64, gender *string, age *int) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok || u.Deleted {
		return false, nil
	}
	if gender != nil {
		u.Gender = *gender
	}
	if age != nil {
		u.Age = *age
	}
	return true, nil
}

func (r *memUsers) SoftDelete(_ context.Context, id int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Users.SoftDelete"); err != nil {
		return false, err
	}
	u, ok := r.m.users[id]
	if !ok || u.Deleted {
		return false, nil
	}
	u.Deleted = true
	u.FollowerCount, u.FollowingCount = 0, 0
	return true, nil
}

// follows

type memFollows struct{ m *memDB }

func (r *memFollows) Exists(_ context.Context, a, b int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.staleExists {
		return false, nil
	}
	return r.m.follows[pair{a, b}], nil
}

func (r *memFollows) Insert(_ context.Context, a, b int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Follows.Insert"); err != nil {
		return false, err
	}
	if r.m.follows[pair{a, b}] {
		return false, nil
	}
	r.m.follows[pair{a, b}] = true
	return true, nil
}

func (r *memFollows) Delete(_ context.Context, a, b int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if !r.m.follows[pair{a, b}] {
		return false, nil
	}
	delete(r.m.follows, pair{a, b})
	return true, nil
}

func (r *memFollows) DeleteAllFor(_ context.Context, id int64) (int64, error) {
	if r.m.beforeDeleteAllFor != nil {
		r.m.beforeDeleteAllFor()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for p := range r.m.follows {
		if p[0] == id || p[1] == id {
			delete(r.m.follows, p)
			n++
		}
	}
	return n, nil
}

func (r *memFollows) side(id int64, mine, other int) []int64 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []int64{}
	for p := range r.m.follows {
		if p[mine] == id {
			out = append(out, p[other])
		}
	}
	slices.Sort(out)
	return out
}

func (r *memFollows) FollowerIDs(_ context.Context, id int64) ([]int64, error) {
	return r.side(id, 1, 0), nil
}

func (r *memFollows) FollowingIDs(_ context.Context, id int64) ([]int64, error) {
	return r.side(id, 0, 1), nil
}

// recipes

type memRecipes struct{ m *memDB }

func (r *memRecipes) Create(_ context.Context, rec *models.Recipe) (*models.Recipe, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextID++
	rec.ID = r.m.nextID
	cp := *rec
	cp.Ingredients = nil
	r.m.recipes[rec.ID] = &cp
	return rec, nil
}

func (r *memRecipes) CreateNutrition(_ context.Context, id int64, n models.Nutrition) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Recipes.CreateNutrition"); err != nil {
		return err
	}
	r.m.recipes[id].Nutrition = n
	return nil
}

func (r *memRecipes) AddIngredients(_ context.Context, id int64, names []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.ingredients[id] = append(r.m.ingredients[id], names...)
	return nil
}

func (r *memRecipes) Get(_ context.Context, id int64) (*models.Recipe, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rec, ok := r.m.recipes[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memRecipes) Ingredients(_ context.Context, id int64) ([]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := append([]string{}, r.m.ingredients[id]...)
	slices.Sort(out)
	return out, nil
}

func (r *memRecipes) OwnerID(_ context.Context, id int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rec, ok := r.m.recipes[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return rec.OwnerID, nil
}

func (r *memRecipes) Lock(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Recipes.Lock"); err != nil {
		return err
	}
	if _, ok := r.m.recipes[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *memRecipes) UpdateTimes(_ context.Context, id int64, cook, prep *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rec, ok := r.m.recipes[id]
	if !ok {
		return common.ErrorNotFound
	}
	if cook != nil {
		rec.CookTime = *cook
	}
	if prep != nil {
		rec.PrepTime = *prep
	}
	return nil
}

func (r *memRecipes) SetAggregate(_ context.Context, id int64, rating *float64, count int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rec, ok := r.m.recipes[id]
	if !ok {
		return common.ErrorNotFound
	}
	rec.AggregatedRating = rating
	rec.ReviewCount = count
	return nil
}

func (r *memRecipes) Delete(_ context.Context, id int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.recipes[id]; !ok {
		return false, nil
	}
	delete(r.m.recipes, id)
	delete(r.m.ingredients, id)
	return true, nil
}

// reviews

type memReviews struct{ m *memDB }

func (r *memReviews) Create(_ context.Context, rv *models.Review) (*models.Review, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Reviews.Create"); err != nil {
		return nil, err
	}
	r.m.nextID++
	rv.ID = r.m.nextID
	cp := *rv
	r.m.reviews[rv.ID] = &cp
	return rv, nil
}

func (r *memReviews) Get(_ context.Context, id int64) (*models.Review, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rv, ok := r.m.reviews[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rv
	return &cp, nil
}

func (r *memReviews) Update(_ context.Context, id, author, recipe int64, rating int, content string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rv, ok := r.m.reviews[id]
	if !ok || rv.AuthorID != author || rv.RecipeID != recipe {
		return false, nil
	}
	rv.Rating, rv.Content = rating, content
	return true, nil
}

func (r *memReviews) Delete(_ context.Context, id int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Reviews.Delete"); err != nil {
		return false, err
	}
	if _, ok := r.m.reviews[id]; !ok {
		return false, nil
	}
	delete(r.m.reviews, id)
	return true, nil
}

func (r *memReviews) DeleteByRecipe(_ context.Context, recipeID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, rv := range r.m.reviews {
		if rv.RecipeID == recipeID {
			delete(r.m.reviews, id)
			n++
		}
	}
	return n, nil
}

func (r *memReviews) Stats(_ context.Context, recipeID int64) (models.ReviewStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Reviews.Stats"); err != nil {
		return models.ReviewStats{}, err
	}
	var s models.ReviewStats
	for _, rv := range r.m.reviews {
		if rv.RecipeID == recipeID {
			s.Count++
			s.Sum += int64(rv.Rating)
		}
	}
	return s, nil
}

// likes

type memLikes struct{ m *memDB }

func (r *memLikes) Insert(_ context.Context, reviewID, userID int64) (bool, error) {
	if r.m.beforeLikeInsert != nil {
		r.m.beforeLikeInsert()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.reviews[reviewID]; !ok {
		return false, fmt.Errorf("%w: review %d", common.ErrorNotFound, reviewID)
	}
	if r.m.likes[pair{reviewID, userID}] {
		return false, nil
	}
	r.m.likes[pair{reviewID, userID}] = true
	return true, nil
}

func (r *memLikes) Delete(_ context.Context, reviewID, userID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if !r.m.likes[pair{reviewID, userID}] {
		return false, nil
	}
	delete(r.m.likes, pair{reviewID, userID})
	return true, nil
}

func (r *memLikes) Count(_ context.Context, reviewID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for p := range r.m.likes {
		if p[0] == reviewID {
			n++
		}
	}
	return n, nil
}

func (r *memLikes) UserIDs(_ context.Context, reviewID int64) ([]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []int64{}
	for p := range r.m.likes {
		if p[0] == reviewID {
			out = append(out, p[1])
		}
	}
	slices.Sort(out)
	return out, nil
}

func (r *memLikes) DeleteByReview(_ context.Context, reviewID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Likes.DeleteByReview"); err != nil {
		return 0, err
	}
	var n int64
	for p := range r.m.likes {
		if p[0] == reviewID {
			delete(r.m.likes, p)
			n++
		}
	}
	return n, nil
}

func (r *memLikes) DeleteByRecipe(_ context.Context, recipeID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for p := range r.m.likes {
		if rv, ok := r.m.reviews[p[0]]; ok && rv.RecipeID == recipeID {
			delete(r.m.likes, p)
			n++
		}
	}
	return n, nil
}

// reads added for rankings and listings

func (r *memUsers) HighestFollowRatio(_ context.Context) (*models.FollowRatio, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var best *models.User
	for _, u := range r.m.users {
		if u.Deleted || u.FollowingCount == 0 {
			continue
		}
		if best == nil {
			best = u
			continue
		}
		// compare u.Followers/u.Following with best's without division
		l, rr := u.FollowerCount*best.FollowingCount, best.FollowerCount*u.FollowingCount
		if l > rr || (l == rr && u.ID < best.ID) {
			best = u
		}
	}
	if best == nil {
		return nil, common.ErrorNotFound
	}
	return &models.FollowRatio{
		UserID: best.ID,
		Name:   best.Name,
		Ratio:  float64(best.FollowerCount) / float64(best.FollowingCount),
	}, nil
}

func (r *memRecipes) ClosestCaloriePair(_ context.Context) (*models.CaloriePair, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ids := make([]int64, 0, len(r.m.recipes))
	for id := range r.m.recipes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var best *models.CaloriePair
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			ca, cb := r.m.recipes[a].Nutrition.Calories, r.m.recipes[b].Nutrition.Calories
			diff := ca - cb
			if diff < 0 {
				diff = -diff
			}
			if best == nil || diff < best.Difference {
				best = &models.CaloriePair{RecipeA: a, RecipeB: b, CaloriesA: ca, CaloriesB: cb, Difference: diff}
			}
		}
	}
	if best == nil {
		return nil, common.ErrorNotFound
	}
	return best, nil
}

func (r *memRecipes) MostIngredients(_ context.Context, limit int) ([]models.IngredientCount, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.IngredientCount{}
	for id, names := range r.m.ingredients {
		if rec, ok := r.m.recipes[id]; ok && len(names) > 0 {
			out = append(out, models.IngredientCount{RecipeID: id, Name: rec.Name, IngredientCount: int64(len(names))})
		}
	}
	slices.SortFunc(out, func(a, b models.IngredientCount) int {
		if a.IngredientCount != b.IngredientCount {
			return int(b.IngredientCount - a.IngredientCount)
		}
		return int(a.RecipeID - b.RecipeID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memReviews) ListByRecipe(_ context.Context, recipeID int64) ([]models.ReviewListing, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("Reviews.ListByRecipe"); err != nil {
		return nil, err
	}
	out := []models.ReviewListing{}
	for _, rv := range r.m.reviews {
		if rv.RecipeID != recipeID {
			continue
		}
		l := models.ReviewListing{Review: *rv}
		if u, ok := r.m.users[rv.AuthorID]; ok {
			l.AuthorName = u.Name
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b models.ReviewListing) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}

func (r *memLikes) UserIDsByRecipe(_ context.Context, recipeID int64) (map[int64][]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[int64][]int64{}
	for p := range r.m.likes {
		if rv, ok := r.m.reviews[p[0]]; ok && rv.RecipeID == recipeID {
			out[p[0]] = append(out[p[0]], p[1])
		}
	}
	for _, ids := range out {
		slices.Sort(ids)
	}
	return out, nil
}
