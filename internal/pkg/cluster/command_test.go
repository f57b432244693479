package cluster

import (
	"strings"
	"testing"
)

func TestSchedulerCommand(t *testing.T) {
	cmd := SchedulerCommand("", "10.0.0.1", 8786, "")
	want := "python3 -m distributed.cli.dask_scheduler --port 8786"
	if cmd != want {
		t.Fatalf("unexpected scheduler command: %q != %q", cmd, want)
	}
}

func TestSchedulerCommandWithLogdir(t *testing.T) {
	cmd := SchedulerCommand("/var/log/dask", "10.0.0.1", 8786, "/opt/conda/bin/python")
	if !strings.HasPrefix(cmd, "mkdir -p /var/log/dask && ") {
		t.Errorf("missing logdir creation prefix: %q", cmd)
	}
	if !strings.Contains(cmd, "/opt/conda/bin/python -m distributed.cli.dask_scheduler --port 8786") {
		t.Errorf("missing scheduler invocation: %q", cmd)
	}
	if !strings.HasSuffix(cmd, "&> /var/log/dask/dask_scheduler_10.0.0.1:8786.log") {
		t.Errorf("missing log redirection suffix: %q", cmd)
	}
}

func TestWorkerCommandFlags(t *testing.T) {
	tests := []struct {
		name    string
		opts    WorkerOptions
		want    []string
		notWant []string
	}{
		{
			name:    "single worker omits nworkers",
			opts:    WorkerOptions{Nthreads: 2, NWorkers: 1},
			want:    []string{"--nthreads 2", "--host 10.0.0.2"},
			notWant: []string{"--nworkers"},
		},
		{
			name: "multiple workers adds nworkers",
			opts: WorkerOptions{Nthreads: 2, NWorkers: 4},
			want: []string{"--nthreads 2", "--nworkers 4"},
		},
		{
			name:    "nohost suppresses host flag",
			opts:    WorkerOptions{Nthreads: 1, NWorkers: 1, NoHost: true},
			notWant: []string{"--host"},
		},
		{
			name: "optional flags only when set",
			opts: WorkerOptions{
				Nthreads:       1,
				NWorkers:       1,
				MemoryLimit:    "4GB",
				WorkerPort:     9000,
				NannyPort:      9001,
				LocalDirectory: "/tmp/dask",
			},
			want: []string{
				"--memory-limit 4GB",
				"--worker-port 9000",
				"--nanny-port 9001",
				"--local-directory /tmp/dask",
			},
		},
		{
			name:    "defaults omit optional flags",
			opts:    WorkerOptions{Nthreads: 1, NWorkers: 1},
			notWant: []string{"--memory-limit", "--worker-port", "--nanny-port", "--local-directory"},
		},
		{
			name: "custom worker module",
			opts: WorkerOptions{Nthreads: 1, NWorkers: 1, RemoteDaskWorker: "my.custom.worker"},
			want: []string{"-m my.custom.worker"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := WorkerCommand("", "10.0.0.1", 8786, "10.0.0.2", tt.opts)
			if !strings.Contains(cmd, "10.0.0.1:8786") {
				t.Errorf("worker command missing scheduler address: %q", cmd)
			}
			for _, w := range tt.want {
				if !strings.Contains(cmd, w) {
					t.Errorf("worker command missing %q: %q", w, cmd)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(cmd, nw) {
					t.Errorf("worker command should not contain %q: %q", nw, cmd)
				}
			}
		})
	}
}

func TestWorkerCommandWithLogdir(t *testing.T) {
	cmd := WorkerCommand("/logs", "10.0.0.1", 8786, "10.0.0.2", WorkerOptions{Nthreads: 1, NWorkers: 1})
	if !strings.HasPrefix(cmd, "mkdir -p /logs && ") {
		t.Errorf("missing logdir creation prefix: %q", cmd)
	}
	if !strings.HasSuffix(cmd, "&> /logs/dask_scheduler_10.0.0.2.log") {
		t.Errorf("missing log redirection suffix: %q", cmd)
	}
}
