package routes

import (
	"campuslink/api/handlers"
	"campuslink/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicApi(router *gin.Engine) *gin.RouterGroup {
	userSvc := handlers.UserSvc()

	publicEndpoints := router.Group("/api/v1/")
	{
		publicEndpoints.POST("auth/register", handlers.Register)
		publicEndpoints.POST("auth/login", handlers.Login)

		// Read-only list endpoints work anonymously too.
		listEndpoints := publicEndpoints.Group("", middleware.OptionalAuthMiddleware(userSvc))
		{
			listEndpoints.GET("feed", handlers.GetFeed)
			listEndpoints.GET("feed/:post_id", handlers.GetPostDetails)
			listEndpoints.GET("threads", handlers.GetThreads)
			listEndpoints.GET("threads/:thread_id", handlers.GetThreadDetails)
			listEndpoints.GET("squads", handlers.ListSquads)
			listEndpoints.GET("squads/:squad_id", handlers.GetSquad)
			listEndpoints.GET("user/:user_id", handlers.GetProfile)
			listEndpoints.GET("user/:user_id/karma", handlers.GetKarma)
		}

		authEndpoints := publicEndpoints.Group("", middleware.AuthMiddleware(userSvc))
		{
			authEndpoints.POST("auth/logout", handlers.Logout)
			authEndpoints.GET("me", handlers.GetMe)
			authEndpoints.PATCH("me", handlers.UpdateProfile)
			authEndpoints.GET("me/saved", handlers.GetSaved)

			authEndpoints.POST("feed", handlers.CreatePost)
			authEndpoints.DELETE("feed/:post_id", handlers.DeletePost)
			authEndpoints.POST("feed/:post_id/like", handlers.LikePost)
			authEndpoints.POST("feed/:post_id/save", handlers.SavePost)
			authEndpoints.POST("feed/:post_id/comments", handlers.AddComment)

			authEndpoints.POST("threads", handlers.CreateThread)
			authEndpoints.POST("threads/:thread_id/vote", handlers.VoteThread)
			authEndpoints.POST("threads/:thread_id/save", handlers.SaveThread)

			authEndpoints.POST("squads", handlers.CreateSquad)
			authEndpoints.POST("squads/:squad_id/join", handlers.JoinSquad)
			authEndpoints.POST("squads/:squad_id/leave", handlers.LeaveSquad)
		}
	}

	router.GET("/ws/feed", handlers.FeedEventsWS)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return publicEndpoints
}

func AdminApi(router *gin.Engine) *gin.RouterGroup {
	userSvc := handlers.UserSvc()

	adminEndpoints := router.Group("/api/v1/admin/", middleware.AuthMiddleware(userSvc))
	{
		adminEndpoints.POST("lists/:kind/invalidate", handlers.InvalidateFeed)
		adminEndpoints.POST("lists/:kind/rebuild", handlers.RebuildFeed)
		adminEndpoints.GET("queue/stats", handlers.GetQueueStats)
		adminEndpoints.GET("cache/stats", handlers.GetCacheStats)
	}
	return adminEndpoints
}
