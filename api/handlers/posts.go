package handlers

import (
	"net/http"
	"strconv"
	"time"

	"campuslink/api/middleware"
	"campuslink/pagination"
	"campuslink/services"

	"github.com/gin-gonic/gin"
)

// CreatePost creates a new feed post.
func CreatePost(c *gin.Context) {
	var req struct {
		Caption  string `json:"caption" binding:"required"`
		ImageURL string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	post, err := postService.CreatePost(c.Request.Context(), userID.(string), req.Caption, req.ImageURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	c.JSON(http.StatusCreated, post)
}

// GetFeed serves one page of the feed, cursor-paginated.
func GetFeed(c *gin.Context) {
	cursor := cursorParam(c)
	pageSize := limitParam(c, 10)

	start := time.Now()

	if page, ok := pageFromCache(c.Request.Context(), pagination.KindPost, cursor, pageSize); ok {
		middleware.RecordListPage(string(pagination.KindPost), time.Since(start), nil)
		c.JSON(http.StatusOK, page)
		return
	}

	page, err := postService.FeedPage(c.Request.Context(), cursor, pageSize)
	middleware.RecordListPage(string(pagination.KindPost), time.Since(start), err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get feed"})
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetPostDetails serves the full-detail record for one post.
func GetPostDetails(c *gin.Context) {
	postID := c.Param("post_id")

	if listCache != nil {
		detail, err := listCache.ItemDetails(c.Request.Context(), pagination.KindPost, postID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		c.JSON(http.StatusOK, detail)
		return
	}

	detail, err := postService.GetPostDetails(c.Request.Context(), postID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// LikePost toggles the caller's like on a post.
func LikePost(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	post, err := postService.LikePost(c.Request.Context(), userID.(string), c.Param("post_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update like"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"likes": post.Likes, "liked_by": post.LikedBy})
}

// AddComment adds a comment to a post.
func AddComment(c *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	comment, err := postService.AddComment(c.Request.Context(), userID.(string), c.Param("post_id"), req.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// DeletePost deletes a post the caller owns.
func DeletePost(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := postService.DeletePost(c.Request.Context(), userID.(string), c.Param("post_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// InvalidateFeed drops the hot list cache for a kind (admin endpoint).
func InvalidateFeed(c *gin.Context) {
	kind := pagination.Kind(c.Param("kind"))
	if kind != pagination.KindPost && kind != pagination.KindThread {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid kind"})
		return
	}

	store := services.NewListStore()
	if err := store.InvalidateList(c.Request.Context(), kind); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invalidate cache"})
		return
	}
	if listCache != nil {
		listCache.Invalidate(kind)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cache invalidated successfully"})
}

// RebuildFeed repopulates the hot list cache from the database (admin
// endpoint).
func RebuildFeed(c *gin.Context) {
	kind := pagination.Kind(c.Param("kind"))
	if kind != pagination.KindPost && kind != pagination.KindThread {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid kind"})
		return
	}

	store := services.NewListStore()
	if err := store.RebuildList(c.Request.Context(), kind); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rebuild list"})
		return
	}
	if listCache != nil {
		listCache.Invalidate(kind)
	}

	c.JSON(http.StatusOK, gin.H{"message": "List rebuilt successfully"})
}

// GetQueueStats reports maintenance queue depth (admin endpoint).
func GetQueueStats(c *gin.Context) {
	if services.QueueServiceInstance == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue service not available"})
		return
	}

	queueLength, err := services.QueueServiceInstance.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get queue stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queue_length": queueLength,
		"workers":      services.QUEUE_WORKER_COUNT,
	})
}

// GetCacheStats reports layered cache entry counts (admin endpoint).
func GetCacheStats(c *gin.Context) {
	if listCache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cache not available"})
		return
	}
	c.JSON(http.StatusOK, listCache.Stats())
}

func cursorParam(c *gin.Context) *string {
	if raw := c.Query("cursor"); raw != "" {
		return &raw
	}
	return nil
}

func limitParam(c *gin.Context, def int) int {
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			return parsed
		}
	}
	return def
}
