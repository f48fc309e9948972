package execution

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Lin-Jiong-HDU/guard/internal/core"
	"github.com/Lin-Jiong-HDU/guard/internal/storage"
)

func shellCheck(name, script string) Check {
	return Check{
		Name:    name,
		Command: core.Command{Cmd: "sh", Args: []string{"-c", script}},
	}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are unix only")
	}
}

func TestPipeline_AllPass(t *testing.T) {
	skipOnWindows(t)
	p := NewPipeline(core.NewExecutor(""), 2, time.Second)

	results, err := p.Run(context.Background(), []Check{
		shellCheck("lint", "echo lint ok"),
		shellCheck("vet", "exit 0"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Name != "lint" || results[0].Output != "lint ok" {
		t.Errorf("Unexpected first result: %+v", results[0])
	}
	for _, r := range results {
		if !r.Passed() {
			t.Errorf("Expected %s to pass, got %v", r.Name, r.Err)
		}
	}
}

func TestPipeline_AggregatesFailures(t *testing.T) {
	skipOnWindows(t)
	p := NewPipeline(core.NewExecutor(""), 3, 100*time.Millisecond)

	results, err := p.Run(context.Background(), []Check{
		shellCheck("pass", "exit 0"),
		shellCheck("fail", "echo broken >&2; exit 4"),
		shellCheck("slow", "exec sleep 5"),
	})
	if err == nil {
		t.Fatal("Expected aggregated error")
	}

	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("Expected multierror, got %T", err)
	}
	if len(merr.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %d: %v", len(merr.Errors), err)
	}
	if !errors.Is(err, ErrCheckFailed) {
		t.Error("Expected ErrCheckFailed in the aggregate")
	}
	if !errors.Is(err, ErrCheckTimeout) {
		t.Error("Expected ErrCheckTimeout in the aggregate")
	}

	if !results[0].Passed() {
		t.Errorf("Expected pass to pass, got %v", results[0].Err)
	}
	if results[1].ExitCode != 4 || results[1].Output != "broken" {
		t.Errorf("Unexpected fail result: %+v", results[1])
	}
	if !errors.Is(results[2].Err, ErrCheckTimeout) {
		t.Errorf("Expected timeout for slow, got %v", results[2].Err)
	}
	if !strings.Contains(err.Error(), "fail:") || !strings.Contains(err.Error(), "slow:") {
		t.Errorf("Expected check names in error, got %q", err.Error())
	}
}

type countingRunner struct {
	running int32
	peak    int32
}

func (r *countingRunner) Execute(ctx context.Context, _ core.Command) (*core.Result, error) {
	n := atomic.AddInt32(&r.running, 1)
	for {
		peak := atomic.LoadInt32(&r.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&r.peak, peak, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	atomic.AddInt32(&r.running, -1)
	return &core.Result{}, nil
}

func TestPipeline_BoundedWorkers(t *testing.T) {
	runner := &countingRunner{}
	p := NewPipeline(runner, 2, time.Second)

	checks := make([]Check, 8)
	for i := range checks {
		checks[i] = Check{Name: "c"}
	}
	if _, err := p.Run(context.Background(), checks); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if peak := atomic.LoadInt32(&runner.peak); peak > 2 {
		t.Errorf("Expected at most 2 concurrent checks, got %d", peak)
	}
}

func TestPipeline_Empty(t *testing.T) {
	p := NewPipeline(&countingRunner{}, 0, 0)
	results, err := p.Run(context.Background(), nil)
	if err != nil || len(results) != 0 {
		t.Errorf("Expected no results and no error, got %v, %v", results, err)
	}
}

func TestChecksFromConfig(t *testing.T) {
	checks := ChecksFromConfig([]storage.ValidatorConfig{
		{Name: "lint", Command: "golangci-lint", Args: []string{"run"}, TimeoutSeconds: 30},
		{Command: "make"},
	})
	if len(checks) != 2 {
		t.Fatalf("Expected 2 checks, got %d", len(checks))
	}
	if checks[0].Name != "lint" || checks[0].Timeout != 30*time.Second {
		t.Errorf("Unexpected first check: %+v", checks[0])
	}
	if checks[1].Name != "make" || checks[1].Timeout != 0 {
		t.Errorf("Expected name to default to the command, got %+v", checks[1])
	}
}
