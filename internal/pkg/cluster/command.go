package cluster

import "fmt"

const (
	// DefaultRemotePython 未指定远程解释器时使用的默认值
	DefaultRemotePython = "python3"
	// DefaultRemoteDaskWorker 远程worker模块的默认入口
	DefaultRemoteDaskWorker = "distributed.cli.dask_worker"
	// DefaultSchedulerPort dask scheduler的默认监听端口
	DefaultSchedulerPort = 8786
)

// WorkerOptions 构造worker启动命令的可选参数。零值字段不会出现在
// 命令行中，由远程进程自行采用默认值。
type WorkerOptions struct {
	Nthreads         int
	NWorkers         int
	NoHost           bool
	MemoryLimit      string
	WorkerPort       int
	NannyPort        int
	RemotePython     string
	RemoteDaskWorker string
	LocalDirectory   string
}

// SchedulerCommand 构造在远程主机上启动dask scheduler的shell命令。
// logdir非空时前置远程目录创建并把stdout/stderr重定向到日志文件。
func SchedulerCommand(logdir, addr string, port int, remotePython string) string {
	python := remotePython
	if python == "" {
		python = DefaultRemotePython
	}

	cmd := fmt.Sprintf("%s -m distributed.cli.dask_scheduler --port %d", python, port)
	if logdir != "" {
		cmd = fmt.Sprintf("mkdir -p %s && %s", logdir, cmd)
		cmd += fmt.Sprintf("&> %s/dask_scheduler_%s:%d.log", logdir, addr, port)
	}
	return cmd
}

// WorkerCommand 构造在远程主机上启动dask worker的shell命令。
// 可选flag仅在对应参数为非默认值时追加。
func WorkerCommand(logdir, schedulerAddr string, schedulerPort int, workerAddr string, o WorkerOptions) string {
	python := o.RemotePython
	if python == "" {
		python = DefaultRemotePython
	}
	module := o.RemoteDaskWorker
	if module == "" {
		module = DefaultRemoteDaskWorker
	}

	cmd := fmt.Sprintf("%s -m %s %s:%d --nthreads %d",
		python, module, schedulerAddr, schedulerPort, o.Nthreads)

	if o.NWorkers != 1 {
		cmd += fmt.Sprintf(" --nworkers %d", o.NWorkers)
	}
	if !o.NoHost {
		cmd += " --host " + workerAddr
	}
	if o.MemoryLimit != "" {
		cmd += " --memory-limit " + o.MemoryLimit
	}
	if o.WorkerPort != 0 {
		cmd += fmt.Sprintf(" --worker-port %d", o.WorkerPort)
	}
	if o.NannyPort != 0 {
		cmd += fmt.Sprintf(" --nanny-port %d", o.NannyPort)
	}
	if o.LocalDirectory != "" {
		cmd += " --local-directory " + o.LocalDirectory
	}

	if logdir != "" {
		cmd = fmt.Sprintf("mkdir -p %s && %s", logdir, cmd)
		cmd += fmt.Sprintf("&> %s/dask_scheduler_%s.log", logdir, workerAddr)
	}
	return cmd
}
