package ssh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"dask-ssh-backend/internal/pkg/style"
)

// ctrlC 发送给远程伪终端的中断控制字符
const ctrlC = 0x03

// outputBuffer 输出通道的缓冲行数。缓冲满且无人消费时转发goroutine会阻塞
const outputBuffer = 1024

// Command 描述一条要在远程主机上执行的命令及其通信通道。
// Output由runner独占写入、由监控方独占读取；Input方向相反。
type Command struct {
	Cmd     string
	Label   string
	Address string
	Port    int
	SSH     Credentials

	Input  chan struct{}
	Output chan string
}

func NewCommand(cmd, label, addr string, port int, creds Credentials) *Command {
	return &Command{
		Cmd:     cmd,
		Label:   label,
		Address: addr,
		Port:    port,
		SSH:     creds,
		Input:   make(chan struct{}, 1),
		Output:  make(chan string, outputBuffer),
	}
}

// Run 建立SSH连接，在远程交互式登录shell中执行命令，并把远程输出
// 逐行转发到Output通道。阻塞直到远程命令退出或Input收到停止信号。
// 连接重试耗尽时向fatal通道上报，由持有方决定整体退出。
func Run(c *Command, opts Options, fatal chan<- error) {
	client, exhausted, err := connect(c, opts)
	if err != nil {
		c.Output <- formatLine(c.Label, style.Fail("SSH connection error: "+err.Error()))
		if exhausted {
			zap.L().Error("SSH connection failed after retries",
				zap.String("addr", c.Address), zap.Int("retries", opts.MaxRetries), zap.Error(err))
			select {
			case fatal <- fmt.Errorf("ssh connection to %s failed after %d retries: %v", c.Address, opts.MaxRetries, err):
			default:
			}
		}
		return
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		c.Output <- formatLine(c.Label, style.Fail("create session: "+err.Error()))
		return
	}
	defer session.Close()

	// 申请伪终端，让远程进程按终端方式刷新输出
	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 40, 80, modes); err != nil {
		c.Output <- formatLine(c.Label, style.Fail("request pty: "+err.Error()))
		return
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		c.Output <- formatLine(c.Label, style.Fail("stdin pipe: "+err.Error()))
		return
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		c.Output <- formatLine(c.Label, style.Fail("stdout pipe: "+err.Error()))
		return
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		c.Output <- formatLine(c.Label, style.Fail("stderr pipe: "+err.Error()))
		return
	}

	// 在交互式登录shell中执行，确保远程环境变量（PATH等）已通过
	// 启动文件加载
	c.Output <- formatLine(c.Label, c.Cmd)
	if err := session.Start(fmt.Sprintf("$SHELL -i -c '%s'", c.Cmd)); err != nil {
		c.Output <- formatLine(c.Label, style.Fail("start command: "+err.Error()))
		return
	}
	zap.L().Info("Remote command started", zap.String("addr", c.Address), zap.String("cmd", c.Cmd))

	var readers sync.WaitGroup
	readers.Add(2)
	go forwardLines(stdout, c.Label, nil, c.Output, &readers)
	go forwardLines(stderr, c.Label, style.Fail, c.Output, &readers)

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	for {
		select {
		case waitErr := <-done:
			readers.Wait()
			c.Output <- exitNotice(c.Label, exitStatus(waitErr))
			return
		case <-c.Input:
			interrupt(c, stdin, done, &readers, opts)
			// 无条件关闭命令通道和连接，让转发goroutine收到EOF，
			// 保证返回之后不再产生输出
			session.Close()
			client.Close()
			readers.Wait()
			return
		case <-time.After(opts.PollInterval):
			// 空闲时发送keepalive，避免中间网络设备断开空闲连接
			client.SendRequest("keepalive@openssh.com", true, nil)
		}
	}
}

// interrupt 向远程伪终端反复发送Ctrl-C请求优雅终止，窗口期内每秒
// 检查一次退出状态；无论成功与否，连接随后都会被关闭。
func interrupt(c *Command, stdin io.WriteCloser, done <-chan error, readers *sync.WaitGroup, opts Options) {
	deadline := time.Now().Add(opts.InterruptWindow)
	for time.Now().Before(deadline) {
		stdin.Write([]byte{ctrlC})
		select {
		case waitErr := <-done:
			readers.Wait()
			c.Output <- exitNotice(c.Label, exitStatus(waitErr))
			return
		case <-time.After(time.Second):
		}
	}
	zap.L().Warn("Remote command did not exit within interrupt window, closing connection",
		zap.String("addr", c.Address), zap.String("cmd", c.Cmd))
}

// forwardLines 把r中的每一行（去掉行尾空白）转发到out，保持行序
func forwardLines(r io.Reader, label string, decorate func(string) string, out chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if decorate != nil {
			line = decorate(line)
		}
		out <- formatLine(label, line)
	}
}

func formatLine(label, line string) string {
	return fmt.Sprintf("[ %s ] : %s", label, line)
}

func exitNotice(label string, status int) string {
	return formatLine(label, style.Fail(fmt.Sprintf("remote process exited with exit status %d", status)))
}

// exitStatus 从session.Wait的错误中提取远程退出码；无法判定时返回-1
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	return -1
}
