package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campuslink/cache"
	"campuslink/db"
	"campuslink/models"
	"campuslink/pagination"
	"campuslink/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFeedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orm, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(orm))
	require.NoError(t, db.CreateListIndexes(orm))

	prevORM := db.ORM
	db.ORM = orm
	prevRedis := services.RedisClient
	services.RedisClient = nil
	t.Cleanup(func() {
		db.ORM = prevORM
		services.RedisClient = prevRedis
	})

	store := services.NewListStore()
	detailPosts := services.NewPostService(nil)
	detailThreads := services.NewThreadService(nil)

	c := cache.New(cache.Options{
		FetchPage: func(ctx context.Context, kind pagination.Kind, cursor *pagination.CursorPos, pageSize int) (pagination.Page, error) {
			items, err := store.QueryPage(ctx, kind, cursor, pageSize)
			if err != nil {
				return pagination.Page{}, err
			}
			return pagination.AssemblePage(items, pageSize), nil
		},
		FetchDetail: func(ctx context.Context, kind pagination.Kind, id string) (*pagination.Detail, error) {
			if kind == pagination.KindThread {
				return detailThreads.GetThreadDetails(ctx, id)
			}
			return detailPosts.GetPostDetails(ctx, id)
		},
		JanitorInterval: time.Hour,
	})
	t.Cleanup(c.Close)

	Init(c)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.POST("/api/v1/feed", CreatePost)
	r.GET("/api/v1/feed", GetFeed)
	r.GET("/api/v1/feed/:post_id", GetPostDetails)
	r.POST("/api/v1/feed/:post_id/like", LikePost)
	r.POST("/api/v1/feed/:post_id/comments", AddComment)
	r.GET("/api/v1/threads", GetThreads)
	return r
}

func seedFeedUser(t *testing.T, id, name string) {
	t.Helper()
	require.NoError(t, db.ORM.Create(&models.User{
		ID:        id,
		Nickname:  id,
		Name:      name,
		Campus:    "north",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}).Error)
}

func seedFeedPosts(t *testing.T, n int) {
	t.Helper()
	base := time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, db.ORM.Create(&models.Post{
			ID:        fmt.Sprintf("post-%03d", i),
			UID:       "u1",
			Caption:   fmt.Sprintf("caption %d", i),
			LikedBy:   models.StringList{},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}
}

func getPage(t *testing.T, r *gin.Engine, path string) pagination.Page {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page pagination.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	return page
}

func TestFeedWalkOverHTTP(t *testing.T) {
	r := setupFeedRouter(t)
	seedFeedUser(t, "u1", "Asha")
	seedFeedPosts(t, 25)

	seen := make(map[string]bool)

	page := getPage(t, r, "/api/v1/feed?limit=10")
	require.Len(t, page.Items, 10)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	for _, it := range page.Items {
		seen[it.ID] = true
	}

	page = getPage(t, r, "/api/v1/feed?limit=10&cursor="+*page.NextCursor)
	require.Len(t, page.Items, 10)
	for _, it := range page.Items {
		assert.False(t, seen[it.ID], "item %s duplicated across pages", it.ID)
		seen[it.ID] = true
	}
	require.NotNil(t, page.NextCursor)

	page = getPage(t, r, "/api/v1/feed?limit=10&cursor="+*page.NextCursor)
	require.Len(t, page.Items, 5)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)
	for _, it := range page.Items {
		assert.False(t, seen[it.ID])
		seen[it.ID] = true
	}

	assert.Len(t, seen, 25, "the walk covers every post exactly once")
}

func TestCreatePostShowsUpInFeed(t *testing.T) {
	r := setupFeedRouter(t)
	seedFeedUser(t, "u1", "Asha")
	seedFeedPosts(t, 5)

	// Prime the cache with the old state.
	getPage(t, r, "/api/v1/feed?limit=10")

	body, _ := json.Marshal(map[string]string{"caption": "just posted"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feed", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// The mutation invalidates the cached feed; the refreshed page leads
	// with the new post once the background refresh lands.
	require.Eventually(t, func() bool {
		page := getPage(t, r, "/api/v1/feed?limit=10")
		return len(page.Items) > 0 && page.Items[0].ID == created.ID
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreatePostRequiresAuth(t *testing.T) {
	r := setupFeedRouter(t)

	body, _ := json.Marshal(map[string]string{"caption": "anonymous"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feed", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostDetailsOverHTTP(t *testing.T) {
	r := setupFeedRouter(t)
	seedFeedUser(t, "u1", "Asha")
	seedFeedUser(t, "u2", "Ravi")
	seedFeedPosts(t, 3)

	body, _ := json.Marshal(map[string]string{"body": "nice one"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feed/post-001/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u2")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/feed/post-001", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var detail pagination.Detail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "post-001", detail.ID)
	require.NotNil(t, detail.Comments)
	assert.Equal(t, 1, *detail.Comments)
}

func TestPostDetailsNotFound(t *testing.T) {
	r := setupFeedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed/missing", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLikePostOverHTTP(t *testing.T) {
	r := setupFeedRouter(t)
	seedFeedUser(t, "u1", "Asha")
	seedFeedUser(t, "u2", "Ravi")
	seedFeedPosts(t, 1)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feed/post-000/like", nil)
	req.Header.Set("X-User-ID", "u2")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Likes   int      `json:"likes"`
		LikedBy []string `json:"liked_by"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Likes)
	assert.Contains(t, resp.LikedBy, "u2")
}
