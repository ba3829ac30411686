package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateSquad creates a squad owned by the caller.
func CreateSquad(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		About string `json:"about"`
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

	squad, err := squadService.CreateSquad(c.Request.Context(), userID.(string), req.Name, req.About)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create squad"})
		return
	}
	c.JSON(http.StatusCreated, squad)
}

// JoinSquad adds the caller as a member.
func JoinSquad(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if err := squadService.JoinSquad(c.Request.Context(), c.Param("squad_id"), userID.(string)); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

// LeaveSquad removes the caller from a squad.
func LeaveSquad(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if err := squadService.LeaveSquad(c.Request.Context(), c.Param("squad_id"), userID.(string)); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// GetSquad returns a squad with its member list.
func GetSquad(c *gin.Context) {
	state, err := squadService.GetSquadState(c.Request.Context(), c.Param("squad_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Squad not found"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// ListSquads returns squads, optionally filtered by campus.
func ListSquads(c *gin.Context) {
	squads, err := squadService.ListSquads(c.Request.Context(), c.Query("campus"), limitParam(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list squads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"squads": squads})
}
