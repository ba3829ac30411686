// Package handlers wires the HTTP surface to the services. Init must run
// once at startup before routes are registered.
package handlers

import (
	"campuslink/cache"
	"campuslink/services"
)

var (
	userService   *services.UserService
	postService   *services.PostService
	threadService *services.ThreadService
	squadService  *services.SquadService
	listCache     *cache.Client
)

func Init(c *cache.Client) {
	listCache = c
	userService = services.NewUserService()
	postService = services.NewPostService(c)
	threadService = services.NewThreadService(c)
	squadService = services.NewSquadService()
}

// UserSvc exposes the user service for middleware wiring.
func UserSvc() *services.UserService {
	return userService
}
