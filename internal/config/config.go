package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server  ServerConfig
	SSH     SSHConfig
	Cluster ClusterConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  int
	WriteTimeout int
}

// SSHConfig 远程连接与轮询参数，时间单位为秒
type SSHConfig struct {
	ConnectTimeout  int
	MaxRetries      int
	RetryInterval   int
	PollInterval    int
	InterruptWindow int
	DefaultPort     int
}

type ClusterConfig struct {
	SchedulerPort    int
	RemotePython     string
	RemoteDaskWorker string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 30),
		},
		SSH: SSHConfig{
			ConnectTimeout:  getEnvAsInt("SSH_CONNECT_TIMEOUT", 30),
			MaxRetries:      getEnvAsInt("SSH_MAX_RETRIES", 3),
			RetryInterval:   getEnvAsInt("SSH_RETRY_INTERVAL", 1),
			PollInterval:    getEnvAsInt("SSH_POLL_INTERVAL", 1),
			InterruptWindow: getEnvAsInt("SSH_INTERRUPT_WINDOW", 5),
			DefaultPort:     getEnvAsInt("SSH_DEFAULT_PORT", 22),
		},
		Cluster: ClusterConfig{
			SchedulerPort:    getEnvAsInt("SCHEDULER_PORT", 8786),
			RemotePython:     getEnvAsString("REMOTE_PYTHON", ""),
			RemoteDaskWorker: getEnvAsString("REMOTE_DASK_WORKER", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvAsString("LOG_LEVEL", "info"),
			Format: getEnvAsString("LOG_FORMAT", "json"),
		},
	}
}

func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
