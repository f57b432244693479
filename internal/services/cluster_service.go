package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dask-ssh-backend/internal/config"
	"dask-ssh-backend/internal/models"
	"dask-ssh-backend/internal/pkg/cluster"
	"dask-ssh-backend/internal/pkg/ssh"
)

const (
	StatusRunning = "running"
	StatusStopped = "stopped"
	StatusFailed  = "failed"
)

type managedCluster struct {
	cluster   *cluster.Cluster
	status    string
	streaming bool
}

// ClusterService 管理运行中的集群，按uuid索引
type ClusterService struct {
	cfg      *config.Config
	mu       sync.Mutex
	clusters map[string]*managedCluster
}

func NewClusterService(cfg *config.Config) *ClusterService {
	return &ClusterService{
		cfg:      cfg,
		clusters: make(map[string]*managedCluster),
	}
}

// Create 按请求参数启动一个新集群并注册，返回集群ID。
// 配置错误（如nprocs与nWorkers同时指定）在启动任何连接之前返回。
func (s *ClusterService) Create(req *models.ClusterCreateRequest) (string, *cluster.Cluster, error) {
	c, err := cluster.New(s.buildOptions(req))
	if err != nil {
		return "", nil, err
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.clusters[id] = &managedCluster{cluster: c, status: StatusRunning}
	s.mu.Unlock()

	go s.watchFatal(id, c)

	zap.L().Info("Cluster started",
		zap.String("clusterId", id),
		zap.String("scheduler", c.SchedulerAddress()),
		zap.Int("workers", len(c.Workers())))
	return id, c, nil
}

// buildOptions 把API请求转换成集群参数，未给出的字段用配置默认值
func (s *ClusterService) buildOptions(req *models.ClusterCreateRequest) cluster.Options {
	schedulerPort := req.SchedulerPort
	if schedulerPort == 0 {
		schedulerPort = s.cfg.Cluster.SchedulerPort
	}
	sshPort := req.SSHPort
	if sshPort == 0 {
		sshPort = s.cfg.SSH.DefaultPort
	}
	remotePython := req.RemotePython
	if remotePython == "" {
		remotePython = s.cfg.Cluster.RemotePython
	}
	remoteDaskWorker := req.RemoteDaskWorker
	if remoteDaskWorker == "" {
		remoteDaskWorker = s.cfg.Cluster.RemoteDaskWorker
	}

	return cluster.Options{
		SchedulerAddr: req.SchedulerAddr,
		SchedulerPort: schedulerPort,
		WorkerAddrs:   req.WorkerAddrs,
		Nthreads:      req.Nthreads,
		NWorkers:      req.NWorkers,
		NProcs:        req.NProcs,
		SSH: ssh.Credentials{
			Username:   req.SSHUsername,
			Port:       sshPort,
			KeyPath:    req.SSHKeyPath,
			Password:   req.SSHPassword,
			Passphrase: req.SSHPassphrase,
		},
		NoHost:           req.NoHost,
		LogDir:           req.LogDir,
		RemotePython:     remotePython,
		MemoryLimit:      req.MemoryLimit,
		WorkerPort:       req.WorkerPort,
		NannyPort:        req.NannyPort,
		RemoteDaskWorker: remoteDaskWorker,
		LocalDirectory:   req.LocalDirectory,
		Runner:           s.runnerOptions(),
	}
}

func (s *ClusterService) runnerOptions() ssh.Options {
	return ssh.Options{
		ConnectTimeout:  time.Duration(s.cfg.SSH.ConnectTimeout) * time.Second,
		MaxRetries:      s.cfg.SSH.MaxRetries,
		RetryInterval:   time.Duration(s.cfg.SSH.RetryInterval) * time.Second,
		PollInterval:    time.Duration(s.cfg.SSH.PollInterval) * time.Second,
		InterruptWindow: time.Duration(s.cfg.SSH.InterruptWindow) * time.Second,
	}
}

// watchFatal 观察集群的致命错误通道。连接重试耗尽意味着集群处于
// 半启动状态，先关停余下连接再以状态1终止进程（快速失败策略）。
func (s *ClusterService) watchFatal(id string, c *cluster.Cluster) {
	err, ok := <-c.Fatal()
	if !ok {
		return
	}

	zap.L().Error("Fatal cluster error, shutting down remaining connections",
		zap.String("clusterId", id), zap.Error(err))
	c.Shutdown()

	s.mu.Lock()
	if m, exists := s.clusters[id]; exists {
		m.status = StatusFailed
	}
	s.mu.Unlock()

	zap.L().Fatal("SSH connection retries exhausted", zap.String("clusterId", id), zap.Error(err))
}

// Get 返回id对应的运行中集群
func (s *ClusterService) Get(id string) (*cluster.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, exists := s.clusters[id]
	if !exists {
		return nil, fmt.Errorf("cluster not found: %s", id)
	}
	if m.status != StatusRunning {
		return nil, fmt.Errorf("cluster %s is %s", id, m.status)
	}
	return m.cluster, nil
}

// AddWorker 向运行中的集群追加一个worker，返回追加后的worker数量
func (s *ClusterService) AddWorker(id, address string) (int, error) {
	c, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	c.AddWorker(address)
	n := len(c.Workers())
	zap.L().Info("Worker added", zap.String("clusterId", id), zap.String("address", address), zap.Int("workers", n))
	return n, nil
}

// Shutdown 关停集群并标记为stopped。重复关停返回错误而不是阻塞。
func (s *ClusterService) Shutdown(id string) error {
	s.mu.Lock()
	m, exists := s.clusters[id]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("cluster not found: %s", id)
	}
	if m.status != StatusRunning {
		s.mu.Unlock()
		return fmt.Errorf("cluster %s is already %s", id, m.status)
	}
	m.status = StatusStopped
	s.mu.Unlock()

	m.cluster.Shutdown()
	zap.L().Info("Cluster shut down", zap.String("clusterId", id))
	return nil
}

// Status 返回集群的当前状态快照
func (s *ClusterService) Status(id string) (*models.ClusterStatusResponse, error) {
	s.mu.Lock()
	m, exists := s.clusters[id]
	s.mu.Unlock()
	if !exists {
		return nil, fmt.Errorf("cluster not found: %s", id)
	}

	workers := m.cluster.Workers()
	infos := make([]models.WorkerInfo, 0, len(workers))
	for _, w := range workers {
		done := false
		select {
		case <-w.Done():
			done = true
		default:
		}
		infos = append(infos, models.WorkerInfo{
			Label:   w.Command.Label,
			Address: w.Command.Address,
			Done:    done,
		})
	}

	return &models.ClusterStatusResponse{
		Success:          true,
		ClusterID:        id,
		SchedulerAddress: m.cluster.SchedulerAddress(),
		Status:           m.status,
		Workers:          infos,
	}, nil
}

// AcquireStream 独占集群的输出流。输出通道只允许一个消费者，
// 同一集群同时只能有一条日志流。
func (s *ClusterService) AcquireStream(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, exists := s.clusters[id]
	if !exists || m.streaming {
		return false
	}
	m.streaming = true
	return true
}

func (s *ClusterService) ReleaseStream(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, exists := s.clusters[id]; exists {
		m.streaming = false
	}
}
