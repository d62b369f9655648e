package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bhms/internal/database"
	"bhms/internal/router"
	"bhms/internal/services"
	"bhms/pkg/config"
	"bhms/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting Boarding House Management Service...")

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		if err := database.CloseMailQueue(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// 执行种子数据初始化
	if err := seedData(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)

	notifier := services.NewNotifier(cfg, appLogger, database.GetMailQueue)
	r := router.SetupRouter(cfg, database.GetDB(), notifier)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
