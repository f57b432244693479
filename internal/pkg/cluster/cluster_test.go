package cluster

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"dask-ssh-backend/internal/pkg/ssh"
)

// testRunnerOptions 极短的超时，后台连接尝试在测试期间快速失败
func testRunnerOptions() ssh.Options {
	return ssh.Options{
		ConnectTimeout:  10 * time.Millisecond,
		MaxRetries:      1,
		RetryInterval:   time.Millisecond,
		PollInterval:    10 * time.Millisecond,
		InterruptWindow: 10 * time.Millisecond,
	}
}

// fakeProcess 构造一个不经过SSH的进程句柄，后台任务等待停止信号
func fakeProcess(label string, addr string) *Process {
	c := ssh.NewCommand("true", label, addr, 0, ssh.Credentials{})
	p := &Process{Command: c, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		<-c.Input
	}()
	return p
}

func TestNewRejectsConflictingWorkerCounts(t *testing.T) {
	_, err := New(Options{
		SchedulerAddr: "10.0.0.1",
		SchedulerPort: 8786,
		NProcs:        2,
		NWorkers:      4,
		Runner:        testRunnerOptions(),
	})
	if err == nil {
		t.Fatal("expected configuration error when both nprocs and n_workers are set")
	}
	if !strings.Contains(err.Error(), "n_workers") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestNewAdoptsDeprecatedNProcs(t *testing.T) {
	c, err := New(Options{
		SchedulerAddr: "10.0.0.1",
		SchedulerPort: 8786,
		NProcs:        2,
		Runner:        testRunnerOptions(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.opts.NWorkers != 2 {
		t.Errorf("nprocs not adopted as n_workers: %d", c.opts.NWorkers)
	}
}

func TestNewStartsSchedulerAndWorkers(t *testing.T) {
	c, err := New(Options{
		SchedulerAddr: "10.0.0.1",
		SchedulerPort: 8786,
		WorkerAddrs:   []string{"10.0.0.2"},
		Nthreads:      1,
		Runner:        testRunnerOptions(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := len(c.Processes()); got != 2 {
		t.Fatalf("expected 2 background tasks, got %d", got)
	}
	if !strings.Contains(c.Scheduler().Command.Cmd, "--port 8786") {
		t.Errorf("scheduler command missing port flag: %q", c.Scheduler().Command.Cmd)
	}
	if !strings.Contains(c.Workers()[0].Command.Cmd, "10.0.0.1:8786") {
		t.Errorf("worker command missing scheduler address: %q", c.Workers()[0].Command.Cmd)
	}
	if c.SchedulerAddress() != "10.0.0.1:8786" {
		t.Errorf("unexpected scheduler address: %q", c.SchedulerAddress())
	}
}

func TestAddWorkerAppendsHandle(t *testing.T) {
	c, err := New(Options{
		SchedulerAddr: "10.0.0.1",
		SchedulerPort: 8786,
		WorkerAddrs:   []string{"10.0.0.2"},
		Runner:        testRunnerOptions(),
	})
	if err != nil {
		t.Fatal(err)
	}

	first := c.Workers()[0]
	c.AddWorker("10.0.0.3")

	workers := c.Workers()
	if len(workers) != 2 {
		t.Fatalf("expected 2 workers, got %d", len(workers))
	}
	if workers[0] != first {
		t.Error("first worker handle changed after AddWorker")
	}
	if workers[1].Command.Address != "10.0.0.3" {
		t.Errorf("unexpected new worker address: %q", workers[1].Command.Address)
	}
}

func TestShutdownJoinsAllProcesses(t *testing.T) {
	c := &Cluster{
		scheduler: fakeProcess("scheduler 10.0.0.1:8786", "10.0.0.1"),
		workers: []*Process{
			fakeProcess("worker 10.0.0.2", "10.0.0.2"),
			fakeProcess("worker 10.0.0.3", "10.0.0.3"),
		},
		fatal: make(chan error, 1),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Shutdown()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return")
	}

	for _, p := range c.Processes() {
		select {
		case <-p.Done():
		default:
			t.Errorf("process %q still running after Shutdown", p.Command.Label)
		}
		if len(p.Command.Output) != 0 {
			t.Errorf("process %q produced output after Shutdown", p.Command.Label)
		}
	}
}

func TestShutdownDrainsBackloggedOutput(t *testing.T) {
	// 后台任务持续产出远超通道缓冲量的行，无人消费时会阻塞在发送上，
	// Shutdown必须一边清空输出一边等待，否则永远无法合流
	flood := func(label, addr string) *Process {
		c := ssh.NewCommand("true", label, addr, 0, ssh.Credentials{})
		p := &Process{Command: c, done: make(chan struct{})}
		go func() {
			defer close(p.done)
			for i := 0; i < 3000; i++ {
				c.Output <- "[ " + label + " ] : line"
			}
			<-c.Input
		}()
		return p
	}

	c := &Cluster{
		scheduler: flood("scheduler 10.0.0.1:8786", "10.0.0.1"),
		workers:   []*Process{flood("worker 10.0.0.2", "10.0.0.2")},
		fatal:     make(chan error, 1),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Shutdown()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown blocked on undrained output")
	}

	for _, p := range c.Processes() {
		select {
		case <-p.Done():
		default:
			t.Errorf("process %q still running after Shutdown", p.Command.Label)
		}
		if len(p.Command.Output) != 0 {
			t.Errorf("process %q left residual output after Shutdown", p.Command.Label)
		}
	}
}

func TestMonitorPreservesPerProcessOrder(t *testing.T) {
	sched := fakeProcess("scheduler 10.0.0.1:8786", "10.0.0.1")
	worker := fakeProcess("worker 10.0.0.2", "10.0.0.2")
	c := &Cluster{scheduler: sched, workers: []*Process{worker}, fatal: make(chan error, 1)}

	lines := []string{"[ scheduler ] : L1", "[ scheduler ] : L2", "[ scheduler ] : L3"}
	for _, l := range lines {
		sched.Command.Output <- l
	}
	worker.Command.Output <- "[ worker ] : W1"

	stop := make(chan os.Signal, 1)
	go func() {
		time.Sleep(250 * time.Millisecond)
		stop <- os.Interrupt
	}()

	var buf bytes.Buffer
	c.monitor(&buf, stop)

	out := buf.String()
	for _, l := range lines {
		if !strings.Contains(out, l) {
			t.Fatalf("monitor output missing %q:\n%s", l, out)
		}
	}
	if !strings.Contains(out, "W1") {
		t.Fatalf("monitor output missing worker line:\n%s", out)
	}
	if strings.Index(out, "L1") > strings.Index(out, "L2") || strings.Index(out, "L2") > strings.Index(out, "L3") {
		t.Errorf("scheduler lines out of order:\n%s", out)
	}
	// scheduler的通道先于worker被清空
	if strings.Index(out, "L3") > strings.Index(out, "W1") {
		t.Errorf("scheduler output should be swept before worker output:\n%s", out)
	}

	c.Shutdown()
}
