package main

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dask-ssh-backend/internal/config"
	"dask-ssh-backend/internal/handlers"
	"dask-ssh-backend/internal/pkg/logger"
	"dask-ssh-backend/internal/router"
	"dask-ssh-backend/internal/services"
)

func main() {
	// 先加载环境变量，配置和日志级别都来自环境
	dotenvErr := godotenv.Load()
	cfg := config.LoadConfig()

	zapLogger, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	if dotenvErr != nil {
		zapLogger.Warn("Failed to load .env file, using default config")
	}

	// 初始化服务
	sshService := services.NewSSHService(cfg)
	clusterService := services.NewClusterService(cfg)

	// 初始化处理器
	sshHandler := handlers.NewSSHHandler(sshService)
	clusterHandler := handlers.NewClusterHandler(clusterService)

	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// CORS 配置
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	router.RegisterRoutes(r, sshHandler, clusterHandler)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("address", addr))
	if err := r.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
