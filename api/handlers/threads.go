package handlers

import (
	"net/http"
	"time"

	"campuslink/api/middleware"
	"campuslink/pagination"
	"campuslink/services"

	"github.com/gin-gonic/gin"
)

// CreateThread creates a new thread on the board.
func CreateThread(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category"`
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

	thread, err := threadService.CreateThread(c.Request.Context(), userID.(string), req.Title, req.Description, req.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create thread"})
		return
	}

	c.JSON(http.StatusCreated, thread)
}

// GetThreads serves one page of the thread board, cursor-paginated.
func GetThreads(c *gin.Context) {
	cursor := cursorParam(c)
	pageSize := limitParam(c, 10)

	start := time.Now()

	if page, ok := pageFromCache(c.Request.Context(), pagination.KindThread, cursor, pageSize); ok {
		middleware.RecordListPage(string(pagination.KindThread), time.Since(start), nil)
		c.JSON(http.StatusOK, page)
		return
	}

	page, err := threadService.ThreadsPage(c.Request.Context(), cursor, pageSize)
	middleware.RecordListPage(string(pagination.KindThread), time.Since(start), err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get threads"})
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetThreadDetails serves the full-detail record for one thread.
func GetThreadDetails(c *gin.Context) {
	threadID := c.Param("thread_id")

	if listCache != nil {
		detail, err := listCache.ItemDetails(c.Request.Context(), pagination.KindThread, threadID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
			return
		}
		c.JSON(http.StatusOK, detail)
		return
	}

	detail, err := threadService.GetThreadDetails(c.Request.Context(), threadID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// VoteThread applies the caller's up or down vote.
func VoteThread(c *gin.Context) {
	var req struct {
		Direction string `json:"direction" binding:"required"`
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

	thread, err := threadService.Vote(c.Request.Context(), userID.(string), c.Param("thread_id"), services.VoteDirection(req.Direction))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"votes":     thread.Score(),
		"upvotes":   thread.Upvotes,
		"downvotes": thread.Downvotes,
	})
}
