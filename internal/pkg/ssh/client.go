package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// Credentials 远程主机的SSH登录凭证
type Credentials struct {
	Username   string
	Port       int
	KeyPath    string
	Password   string
	Passphrase string
}

// Options 控制连接和轮询行为的参数
type Options struct {
	ConnectTimeout  time.Duration
	MaxRetries      int
	RetryInterval   time.Duration
	PollInterval    time.Duration
	InterruptWindow time.Duration
}

func DefaultOptions() Options {
	return Options{
		ConnectTimeout:  30 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		PollInterval:    time.Second,
		InterruptWindow: 5 * time.Second,
	}
}

// ClientConfig 根据凭证构造SSH客户端配置。
// 注意：自动信任未知主机密钥，生产环境应该验证主机密钥
func ClientConfig(creds Credentials, timeout time.Duration) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if creds.KeyPath != "" {
		key, err := os.ReadFile(creds.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %v", err)
		}
		var signer ssh.Signer
		if creds.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(creds.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("parse private key: %v", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	} else if creds.Password != "" {
		auth = append(auth, ssh.Password(creds.Password))
	}

	return &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            auth,
		Timeout:         timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

// Dial 单次建立SSH连接，不做重试
func Dial(host string, creds Credentials, timeout time.Duration) (*ssh.Client, error) {
	config, err := ClientConfig(creds, timeout)
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(host, strconv.Itoa(creds.Port))
	return ssh.Dial("tcp", addr, config)
}

// connect 建立到c目标主机的SSH连接。SSH层失败按固定间隔重试，
// 达到MaxRetries次后返回exhausted=true；传输层错误不重试。
func connect(c *Command, opts Options) (client *ssh.Client, exhausted bool, err error) {
	config, err := ClientConfig(c.SSH, opts.ConnectTimeout)
	if err != nil {
		return nil, false, err
	}

	addr := net.JoinHostPort(c.Address, strconv.Itoa(c.SSH.Port))
	attempt := 0
	permanent := false

	operation := func() error {
		attempt++
		conn, dialErr := ssh.Dial("tcp", addr, config)
		if dialErr != nil {
			var opErr *net.OpError
			if errors.As(dialErr, &opErr) {
				permanent = true
				return backoff.Permanent(dialErr)
			}
			zap.L().Warn("SSH connection error",
				zap.String("addr", addr),
				zap.String("cmd", c.Cmd),
				zap.Int("attempt", attempt),
				zap.Int("maxRetries", opts.MaxRetries),
				zap.Error(dialErr))
			return dialErr
		}
		client = conn
		return nil
	}

	// MaxRetries是总尝试次数，不足1时按单次尝试处理，避免减一下溢
	retries := uint64(0)
	if opts.MaxRetries > 1 {
		retries = uint64(opts.MaxRetries - 1)
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.RetryInterval), retries)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, !permanent, err
	}
	return client, false, nil
}
