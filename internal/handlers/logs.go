package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dask-ssh-backend/internal/models"
	"dask-ssh-backend/internal/pkg/cluster"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return r.Header.Get("Origin") == "http://localhost:3000"
	},
}

// StreamLogs 把集群所有远程进程的输出按websocket流式推送。
// 输出通道只允许单个消费者，同一集群同时只能有一条流。
func (h *ClusterHandler) StreamLogs(c *gin.Context) {
	id := c.Param("id")
	cl, err := h.service.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Success: false, Message: err.Error()})
		return
	}

	if !h.service.AcquireStream(id) {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Message: "Cluster output is already being streamed",
		})
		return
	}
	defer h.service.ReleaseStream(id)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	// 读取端只用于感知客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			zap.L().Info("Log stream closed", zap.String("clusterId", id))
			return
		case <-ticker.C:
			// scheduler在前、workers按加入顺序，每个通道按到达顺序清空
			for _, p := range cl.Processes() {
				if !flushProcess(ws, p) {
					return
				}
			}
		}
	}
}

func flushProcess(ws *websocket.Conn, p *cluster.Process) bool {
	for {
		select {
		case line := <-p.Output():
			if err := ws.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				zap.L().Warn("WebSocket write error", zap.Error(err))
				return false
			}
		default:
			return true
		}
	}
}
