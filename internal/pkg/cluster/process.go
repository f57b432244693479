package cluster

import (
	"fmt"

	"dask-ssh-backend/internal/pkg/ssh"
	"dask-ssh-backend/internal/pkg/style"
)

// Process 一条已启动的远程命令及其后台执行句柄。
// 同一个Process只对应一次远程命令执行，关停后不会被复用。
type Process struct {
	Command *ssh.Command
	done    chan struct{}
}

// Output 该进程的输出通道，行按到达顺序排列
func (p *Process) Output() <-chan string {
	return p.Command.Output
}

// Done 后台任务结束时关闭
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Stop 向后台任务发送停止信号，不阻塞
func (p *Process) Stop() {
	select {
	case p.Command.Input <- struct{}{}:
	default:
	}
}

// Wait 阻塞直到后台任务结束
func (p *Process) Wait() {
	<-p.done
}

// StartScheduler 在addr上启动dask scheduler进程并返回其句柄，
// 实际的SSH连接和执行在后台任务中进行。
func StartScheduler(logdir, addr string, port int, creds ssh.Credentials, remotePython string, opts ssh.Options, fatal chan<- error) *Process {
	cmd := SchedulerCommand(logdir, addr, port, remotePython)
	label := style.Bold(fmt.Sprintf("scheduler %s:%d", addr, port))
	return startProcess(ssh.NewCommand(cmd, label, addr, port, creds), opts, fatal)
}

// StartWorker 在workerAddr上启动dask worker进程并返回其句柄。
// 参数组合不在本地校验，远程进程会通过stderr报告错误。
func StartWorker(logdir, schedulerAddr string, schedulerPort int, workerAddr string, creds ssh.Credentials, o WorkerOptions, opts ssh.Options, fatal chan<- error) *Process {
	cmd := WorkerCommand(logdir, schedulerAddr, schedulerPort, workerAddr, o)
	label := "worker " + workerAddr
	return startProcess(ssh.NewCommand(cmd, label, workerAddr, 0, creds), opts, fatal)
}

func startProcess(c *ssh.Command, opts ssh.Options, fatal chan<- error) *Process {
	p := &Process{Command: c, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		ssh.Run(c, opts, fatal)
	}()
	return p
}
