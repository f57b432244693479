package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dask-ssh-backend/internal/models"
	"dask-ssh-backend/internal/services"
	"dask-ssh-backend/pkg/utils"
)

type ClusterHandler struct {
	service *services.ClusterService
}

func NewClusterHandler(service *services.ClusterService) *ClusterHandler {
	return &ClusterHandler{service: service}
}

func (h *ClusterHandler) Create(c *gin.Context) {
	var req models.ClusterCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Error("Invalid cluster create request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := validateCreateRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: err.Message,
			Details: err.Details,
		})
		return
	}

	id, cl, err := h.service.Create(&req)
	if err != nil {
		// 配置错误在任何连接建立之前返回
		apiErr := utils.NewConfigError(err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: apiErr.Message,
			Details: apiErr.Details,
		})
		return
	}

	c.JSON(http.StatusOK, models.ClusterResponse{
		Success:          true,
		ClusterID:        id,
		SchedulerAddress: cl.SchedulerAddress(),
		Message:          "Cluster started",
	})
}

func (h *ClusterHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *ClusterHandler) AddWorker(c *gin.Context) {
	var req models.AddWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := utils.ValidateAddress(req.Address); err != nil {
		apiErr := utils.NewValidationError("address", req.Address)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: apiErr.Message,
			Details: err.Error(),
		})
		return
	}

	n, err := h.service.AddWorker(c.Param("id"), req.Address)
	if err != nil {
		apiErr := utils.NewClusterError("add worker", err)
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Message: apiErr.Message,
			Details: apiErr.Details,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "workers": n})
}

func (h *ClusterHandler) Shutdown(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Shutdown(id); err != nil {
		apiErr := utils.NewClusterError("shutdown", err)
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Message: apiErr.Message,
			Details: apiErr.Details,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cluster shut down"})
}

// validateCreateRequest 校验会被拼进远程shell命令的字段
func validateCreateRequest(req *models.ClusterCreateRequest) *utils.APIError {
	if err := utils.ValidateAddress(req.SchedulerAddr); err != nil {
		return utils.NewValidationError("schedulerAddr", req.SchedulerAddr)
	}
	if req.SchedulerPort != 0 {
		if err := utils.ValidatePort(req.SchedulerPort); err != nil {
			return utils.NewValidationError("schedulerPort", req.SchedulerPort)
		}
	}
	for _, addr := range req.WorkerAddrs {
		if err := utils.ValidateAddress(addr); err != nil {
			return utils.NewValidationError("workerAddrs", addr)
		}
	}
	if req.LogDir != "" {
		if err := utils.ValidatePath(req.LogDir); err != nil {
			return utils.NewValidationError("logDir", req.LogDir)
		}
	}
	if req.LocalDirectory != "" {
		if err := utils.ValidatePath(req.LocalDirectory); err != nil {
			return utils.NewValidationError("localDirectory", req.LocalDirectory)
		}
	}
	return nil
}
