package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"goodlist/internal/db"
	"goodlist/internal/models"
	"goodlist/internal/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	// before runs ahead of every fetch, outside the lock.
	before func(url string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: map[string]int{}, fail: map[string]error{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*OGPData, error) {
	if f.before != nil {
		f.before(url)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err := f.fail[url]; err != nil {
		return nil, err
	}
	return &OGPData{
		Title:       "Title of " + url,
		Description: "About " + url,
		Image:       url + "/og.png",
		URL:         url,
	}, nil
}

func (f *fakeFetcher) failOn(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[url] = errors.New("connection refused")
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fixture struct {
	db         *gorm.DB
	fetcher    *fakeFetcher
	identity   *IdentityService
	contents   *ContentService
	lists      *ListService
	engagement *EngagementService
	posts      *PostService
	feed       *FeedService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(conn))
	return conn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := newTestDB(t)
	cache, err := utils.NewLRUCache(16)
	require.NoError(t, err)

	f := &fixture{db: conn, fetcher: newFakeFetcher()}
	f.feed = NewFeedService(conn, cache, 50)
	f.identity = NewIdentityService(conn, f.feed)
	f.contents = NewContentService(conn, f.fetcher)
	f.lists = NewListService(conn, f.feed)
	f.engagement = NewEngagementService(conn, f.contents)
	f.posts = NewPostService(conn, f.contents, f.feed)
	return f
}

func (f *fixture) register(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.identity.Register(context.Background(), RegisterInput{Username: name, Password: "secret123"})
	require.NoError(t, err)
	return u
}

func (f *fixture) guest(t *testing.T) *models.User {
	t.Helper()
	u, err := f.identity.Resolve(context.Background(), Evidence{GuestToken: NewGuestToken()})
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func (f *fixture) home(t *testing.T, u *models.User) *models.UserList {
	t.Helper()
	var home models.UserList
	require.NoError(t, f.db.Where("owner_id = ? AND name = ?", u.ID, models.HomeListName).First(&home).Error)
	return &home
}

func (f *fixture) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (f *fixture) goodCount(t *testing.T, url string) (int, bool) {
	t.Helper()
	var cd models.ContentData
	err := f.db.Where("content_url = ?", url).First(&cd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false
	}
	require.NoError(t, err)
	return cd.GoodCount, true
}

func dlsiteURL(n int) string {
	return fmt.Sprintf("https://www.dlsite.com/maniax/work/=/product_id/RJ%08d.html", n)
}
