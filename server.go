package main

import (
	"context"
	"flag"
	"fmt"

	"campuslink/api/handlers"
	"campuslink/api/middleware"
	"campuslink/api/routes"
	"campuslink/cache"
	"campuslink/config"
	"campuslink/db"
	"campuslink/logger"
	"campuslink/pagination"
	"campuslink/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.Init(config.AppConfig.Logs.Level); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()
	logger.Info("starting server", zap.String("config", configPath))

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}
	if err := db.CreateListIndexes(db.ORM); err != nil {
		panic("Failed to create list indexes: " + err.Error())
	}

	if err := services.InitRedis(); err != nil {
		logger.Warn("redis unavailable, list caching degraded", zap.Error(err))
	}

	if err := services.InitRabbitMQ(); err != nil {
		logger.Warn("rabbitmq unavailable, feed events degraded", zap.Error(err))
	}
	defer services.CloseRabbitMQ()

	store := services.NewListStore()
	detailPosts := services.NewPostService(nil)
	detailThreads := services.NewThreadService(nil)

	listCache := cache.New(cache.Options{
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
		Logger: logger.L(),
	})
	defer listCache.Close()

	handlers.Init(listCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services.InitQueueService(listCache)
	if services.QueueServiceInstance != nil {
		services.QueueServiceInstance.StartWorkers(ctx)
		if err := services.StartFeedEventConsumer(ctx, "campuslink_feed", services.QueueServiceInstance); err != nil {
			logger.Warn("feed event consumer not started", zap.Error(err))
		}
	}

	router := gin.Default()
	router.Use(middleware.PrometheusMiddleware("campuslink"))

	routes.PublicApi(router)
	routes.AdminApi(router)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
