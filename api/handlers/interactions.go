package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SavePost toggles the caller's bookmark on a post.
func SavePost(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	saved, err := userService.ToggleSavePost(c.Request.Context(), userID.(string), c.Param("post_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// SaveThread toggles the caller's bookmark on a thread.
func SaveThread(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	saved, err := userService.ToggleSaveThread(c.Request.Context(), userID.(string), c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// GetSaved serves the caller's bookmarked posts and threads.
func GetSaved(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	posts, threads, err := userService.SavedItems(c.Request.Context(), userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookmarks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts, "threads": threads})
}

// GetKarma reports the reaction score a user has earned.
func GetKarma(c *gin.Context) {
	userID := c.Param("user_id")

	if _, err := userService.GetUser(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	karma, err := userService.Karma(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute karma"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "karma": karma})
}
