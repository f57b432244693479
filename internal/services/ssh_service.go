package services

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dask-ssh-backend/internal/config"
	"dask-ssh-backend/internal/models"
	"dask-ssh-backend/internal/pkg/ssh"
)

type SSHService struct {
	cfg    *config.Config
	logger *zap.Logger
}

func NewSSHService(cfg *config.Config) *SSHService {
	return &SSHService{cfg: cfg, logger: zap.L()}
}

// TestConnection 对目标主机做一次连接预检，顺便收集基础系统信息。
// 集群创建前可以用它确认凭证和网络可达性。
func (s *SSHService) TestConnection(req *models.SSHTestRequest) (success bool, details []string, err error) {
	port := req.Port
	if port == 0 {
		port = s.cfg.SSH.DefaultPort
	}
	creds := ssh.Credentials{
		Username:   req.Username,
		Port:       port,
		KeyPath:    req.KeyPath,
		Password:   req.Password,
		Passphrase: req.Passphrase,
	}

	client, err := ssh.Dial(req.Address, creds, time.Duration(s.cfg.SSH.ConnectTimeout)*time.Second)
	if err != nil {
		s.logger.Error("SSH dial failed", zap.String("addr", req.Address), zap.Error(err))
		return false, []string{err.Error()}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		s.logger.Error("Failed to create SSH session", zap.Error(err))
		return false, []string{err.Error()}, err
	}
	defer session.Close()

	output, err := session.CombinedOutput("uname -a && free -m")
	if err != nil {
		s.logger.Error("Failed to execute command", zap.Error(err))
		return false, []string{err.Error()}, fmt.Errorf("execute command: %v", err)
	}

	details = strings.Split(strings.TrimSpace(string(output)), "\n")
	s.logger.Info("SSH test successful", zap.String("addr", req.Address))
	return true, details, nil
}
