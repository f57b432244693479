package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dask-ssh-backend/internal/models"
	"dask-ssh-backend/internal/services"
	"dask-ssh-backend/pkg/utils"
)

type SSHHandler struct {
	service *services.SSHService
}

func NewSSHHandler(service *services.SSHService) *SSHHandler {
	return &SSHHandler{service: service}
}

func (h *SSHHandler) TestConnection(c *gin.Context) {
	var req models.SSHTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Error("Invalid SSH test request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.SSHTestResponse{
			Success: false,
			Message: "Invalid request payload",
			Details: []string{err.Error()},
		})
		return
	}

	if err := utils.ValidateAddress(req.Address); err != nil {
		c.JSON(http.StatusBadRequest, models.SSHTestResponse{
			Success: false,
			Message: "Invalid address",
			Details: []string{err.Error()},
		})
		return
	}

	success, details, err := h.service.TestConnection(&req)
	resp := models.SSHTestResponse{Success: success, Details: details}
	if err != nil {
		resp.Message = utils.NewSSHError(err).Message
	} else {
		resp.Message = "SSH connection successful"
	}
	c.JSON(http.StatusOK, resp)
}
