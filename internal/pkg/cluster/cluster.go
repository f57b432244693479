// Package cluster 在远程主机上启动并监督dask集群的scheduler和worker
// 进程。每个远程进程由一个独立的后台任务通过SSH托管，输出经各自的
// 通道汇回本地。
package cluster

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"dask-ssh-backend/internal/pkg/ssh"
	"dask-ssh-backend/internal/pkg/style"
)

// Options 集群启动参数
type Options struct {
	SchedulerAddr string
	SchedulerPort int
	WorkerAddrs   []string

	Nthreads int
	NWorkers int
	// NProcs 是NWorkers的旧名，二者不能同时指定。
	//
	// Deprecated: 使用NWorkers。
	NProcs int

	SSH    ssh.Credentials
	NoHost bool
	LogDir string

	RemotePython     string
	MemoryLimit      string
	WorkerPort       int
	NannyPort        int
	RemoteDaskWorker string
	LocalDirectory   string

	// Runner 为零值时采用ssh.DefaultOptions()
	Runner ssh.Options
}

// Cluster 持有一个scheduler句柄和一组worker句柄。
// Shutdown之后不可再调用AddWorker，也不可重复Shutdown（第二次调用
// 的行为未定义），这是调用方需要遵守的前置条件。
type Cluster struct {
	opts   Options
	logdir string

	scheduler *Process
	mu        sync.Mutex
	workers   []*Process

	fatal     chan error
	closeOnce sync.Once
}

// New 校验参数、启动scheduler及初始worker列表，返回运行中的集群。
// 配置错误在任何连接建立之前返回。
func New(opts Options) (*Cluster, error) {
	if opts.NProcs != 0 && opts.NWorkers != 0 {
		return nil, fmt.Errorf("both nprocs and n_workers were specified, use n_workers only")
	}
	if opts.NProcs != 0 {
		zap.L().Warn("The nprocs option is deprecated, it has been renamed to n_workers")
		opts.NWorkers = opts.NProcs
		opts.NProcs = 0
	}
	if opts.NWorkers == 0 {
		opts.NWorkers = 1
	}
	if opts.Runner == (ssh.Options{}) {
		opts.Runner = ssh.DefaultOptions()
	}

	// 日志目录带统一时间戳，同一集群的所有节点写到同一个子目录
	logdir := ""
	if opts.LogDir != "" {
		logdir = filepath.Join(opts.LogDir, "dask-ssh_"+time.Now().Format("2006-01-02_15:04:05"))
		fmt.Println(style.Warn(fmt.Sprintf(
			"Output will be redirected to logfiles stored locally on individual worker nodes under %q.", logdir)))
	}

	c := &Cluster{
		opts:   opts,
		logdir: logdir,
		fatal:  make(chan error, 1),
	}

	c.scheduler = StartScheduler(logdir, opts.SchedulerAddr, opts.SchedulerPort,
		opts.SSH, opts.RemotePython, opts.Runner, c.fatal)

	for _, addr := range opts.WorkerAddrs {
		c.AddWorker(addr)
	}
	return c, nil
}

// Run 以受控方式使用集群：构造、执行fn，无论fn结果如何都保证Shutdown
func Run(opts Options, fn func(*Cluster) error) error {
	c, err := New(opts)
	if err != nil {
		return err
	}
	defer c.Shutdown()
	return fn(c)
}

// SchedulerAddress 返回scheduler的host:port
func (c *Cluster) SchedulerAddress() string {
	return fmt.Sprintf("%s:%d", c.opts.SchedulerAddr, c.opts.SchedulerPort)
}

// Scheduler 返回scheduler进程句柄
func (c *Cluster) Scheduler() *Process {
	return c.scheduler
}

// Workers 返回worker句柄的快照，按加入顺序排列
func (c *Cluster) Workers() []*Process {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Process(nil), c.workers...)
}

// Processes 返回所有进程句柄，scheduler在前，workers按加入顺序排列
func (c *Cluster) Processes() []*Process {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := make([]*Process, 0, len(c.workers)+1)
	all = append(all, c.scheduler)
	return append(all, c.workers...)
}

// Fatal 后台任务的致命错误通道。连接重试耗尽的任务会向这里上报，
// 持有方应当关停集群并以非零状态退出进程。
func (c *Cluster) Fatal() <-chan error {
	return c.fatal
}

// AddWorker 用集群已有的参数在address上追加一个worker，仅在集群
// 运行状态下有效
func (c *Cluster) AddWorker(address string) *Process {
	p := StartWorker(c.logdir, c.opts.SchedulerAddr, c.opts.SchedulerPort, address,
		c.opts.SSH, WorkerOptions{
			Nthreads:         c.opts.Nthreads,
			NWorkers:         c.opts.NWorkers,
			NoHost:           c.opts.NoHost,
			MemoryLimit:      c.opts.MemoryLimit,
			WorkerPort:       c.opts.WorkerPort,
			NannyPort:        c.opts.NannyPort,
			RemotePython:     c.opts.RemotePython,
			RemoteDaskWorker: c.opts.RemoteDaskWorker,
			LocalDirectory:   c.opts.LocalDirectory,
		}, c.opts.Runner, c.fatal)

	c.mu.Lock()
	c.workers = append(c.workers, p)
	c.mu.Unlock()
	return p
}

// Monitor 进入阻塞的显示循环，按到达顺序打印每个进程的输出，
// 每100ms扫一遍所有句柄；收到SIGINT后干净返回。
func (c *Cluster) Monitor() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	c.monitor(os.Stdout, sig)
}

func (c *Cluster) monitor(w io.Writer, stop <-chan os.Signal) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, p := range c.Processes() {
				drainInto(w, p)
			}
		}
	}
}

func drainInto(w io.Writer, p *Process) {
	for {
		select {
		case line := <-p.Output():
			fmt.Fprintln(w, line)
		default:
			return
		}
	}
}

// Shutdown 关停整个集群：先scheduler后workers，逐个发送停止信号，
// 边丢弃其输出边等待后台任务结束。输出通道缓冲可能已被积压填满，
// 不清空的话转发goroutine会卡在发送上、后台任务无法退出。
// 返回后所有后台任务均已终止。
func (c *Cluster) Shutdown() {
	for _, p := range c.Processes() {
		p.Stop()
		drainUntilDone(p)
	}
	// 所有runner都已结束，不会再有致命错误写入
	c.closeOnce.Do(func() { close(c.fatal) })
}

// drainUntilDone 丢弃p的输出直到后台任务结束，再清空缓冲里的剩余行
func drainUntilDone(p *Process) {
	for {
		select {
		case <-p.Done():
			for {
				select {
				case <-p.Output():
				default:
					return
				}
			}
		case <-p.Output():
		}
	}
}
