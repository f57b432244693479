package models

type SSHTestRequest struct {
	Address    string `json:"address" binding:"required"`
	Port       int    `json:"port"`
	Username   string `json:"username" binding:"required"`
	KeyPath    string `json:"keyPath,omitempty"`
	Password   string `json:"password,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
}

type SSHTestResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type ClusterCreateRequest struct {
	SchedulerAddr string   `json:"schedulerAddr" binding:"required"`
	SchedulerPort int      `json:"schedulerPort"`
	WorkerAddrs   []string `json:"workerAddrs" binding:"required"`

	Nthreads int `json:"nthreads"`
	NWorkers int `json:"nWorkers"`
	// 旧参数名，与nWorkers互斥
	NProcs int `json:"nprocs"`

	SSHUsername   string `json:"sshUsername" binding:"required"`
	SSHPort       int    `json:"sshPort"`
	SSHKeyPath    string `json:"sshKeyPath,omitempty"`
	SSHPassword   string `json:"sshPassword,omitempty"`
	SSHPassphrase string `json:"sshPassphrase,omitempty"`

	NoHost bool   `json:"noHost"`
	LogDir string `json:"logDir,omitempty"`

	RemotePython     string `json:"remotePython,omitempty"`
	MemoryLimit      string `json:"memoryLimit,omitempty"`
	WorkerPort       int    `json:"workerPort,omitempty"`
	NannyPort        int    `json:"nannyPort,omitempty"`
	RemoteDaskWorker string `json:"remoteDaskWorker,omitempty"`
	LocalDirectory   string `json:"localDirectory,omitempty"`
}

type ClusterResponse struct {
	Success          bool   `json:"success"`
	ClusterID        string `json:"clusterId,omitempty"`
	SchedulerAddress string `json:"schedulerAddress,omitempty"`
	Message          string `json:"message,omitempty"`
}

type AddWorkerRequest struct {
	Address string `json:"address" binding:"required"`
}

type WorkerInfo struct {
	Label   string `json:"label"`
	Address string `json:"address"`
	Done    bool   `json:"done"`
}

type ClusterStatusResponse struct {
	Success          bool         `json:"success"`
	ClusterID        string       `json:"clusterId"`
	SchedulerAddress string       `json:"schedulerAddress"`
	Status           string       `json:"status"`
	Workers          []WorkerInfo `json:"workers"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
