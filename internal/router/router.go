package router

import (
	"github.com/gin-gonic/gin"

	"dask-ssh-backend/internal/handlers"
)

func RegisterRoutes(r *gin.Engine, sshHandler *handlers.SSHHandler, clusterHandler *handlers.ClusterHandler) {
	api := r.Group("/api")
	{
		ssh := api.Group("/ssh")
		{
			ssh.POST("/test", sshHandler.TestConnection)
		}

		cluster := api.Group("/cluster")
		{
			cluster.POST("", clusterHandler.Create)
			cluster.GET("/:id", clusterHandler.Status)
			cluster.GET("/:id/logs", clusterHandler.StreamLogs)
			cluster.POST("/:id/workers", clusterHandler.AddWorker)
			cluster.POST("/:id/shutdown", clusterHandler.Shutdown)
		}
	}
}
