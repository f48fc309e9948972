package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/Lin-Jiong-HDU/guard/internal/core"
	"github.com/Lin-Jiong-HDU/guard/internal/storage"
)

var (
	// ErrCheckFailed marks a validator that exited non-zero.
	ErrCheckFailed = errors.New("check failed")
	// ErrCheckTimeout marks a validator that exceeded its timeout.
	ErrCheckTimeout = errors.New("check timed out")
)

// DefaultTimeout applies to checks without their own timeout.
const DefaultTimeout = 2 * time.Minute

// Runner executes one command with captured output.
type Runner interface {
	Execute(ctx context.Context, cmd core.Command) (*core.Result, error)
}

// Check is one external validator.
type Check struct {
	Name    string
	Command core.Command
	Timeout time.Duration
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name     string
	ExitCode int
	Output   string
	Duration time.Duration
	Err      error
}

// Passed reports whether the check succeeded.
func (r CheckResult) Passed() bool {
	return r.Err == nil
}

// Pipeline runs validators concurrently with a bounded number of workers.
type Pipeline struct {
	runner         Runner
	jobs           int
	defaultTimeout time.Duration
}

// NewPipeline creates a pipeline running at most jobs checks at once.
func NewPipeline(runner Runner, jobs int, defaultTimeout time.Duration) *Pipeline {
	if jobs <= 0 {
		jobs = 1
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Pipeline{
		runner:         runner,
		jobs:           jobs,
		defaultTimeout: defaultTimeout,
	}
}

// ChecksFromConfig converts configured validators into checks.
func ChecksFromConfig(validators []storage.ValidatorConfig) []Check {
	checks := make([]Check, 0, len(validators))
	for _, v := range validators {
		name := v.Name
		if name == "" {
			name = v.Command
		}
		checks = append(checks, Check{
			Name:    name,
			Command: core.Command{Cmd: v.Command, Args: v.Args},
			Timeout: time.Duration(v.TimeoutSeconds) * time.Second,
		})
	}
	return checks
}

// Run executes every check and returns the results in input order. The
// error aggregates every failed or timed-out check; one failure never stops
// the others.
func (p *Pipeline) Run(ctx context.Context, checks []Check) ([]CheckResult, error) {
	results := make([]CheckResult, len(checks))

	var g errgroup.Group
	g.SetLimit(p.jobs)
	for i, check := range checks {
		i, check := i, check
		g.Go(func() error {
			results[i] = p.runCheck(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	var errs *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return results, errs.ErrorOrNil()
}

func (p *Pipeline) runCheck(ctx context.Context, check Check) CheckResult {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res, err := p.runner.Execute(ctx, check.Command)
	result := CheckResult{Name: check.Name, Duration: time.Since(start)}

	if err != nil {
		result.ExitCode = -1
		result.Err = err
		return result
	}
	result.ExitCode = res.ExitCode
	result.Output = res.Output

	switch {
	case res.Error != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Err = fmt.Errorf("%w after %s", ErrCheckTimeout, timeout)
	case res.Error != nil && ctx.Err() != nil:
		result.Err = ctx.Err()
	case res.Error != nil || res.ExitCode != 0:
		result.Err = fmt.Errorf("%w: exit code %d", ErrCheckFailed, res.ExitCode)
	}
	return result
}
