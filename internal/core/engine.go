package core

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/guard/internal/audit"
	"github.com/Lin-Jiong-HDU/guard/internal/core/security"
	"github.com/Lin-Jiong-HDU/guard/internal/terminal"
)

// ProgramRunner locates and runs the real program.
type ProgramRunner interface {
	LookupReal(program string) (string, error)
	Exec(ctx context.Context, realPath, program string, args []string) int
}

// Auditor records decisions. Record must never fail the invocation.
type Auditor interface {
	Record(rec audit.Record)
}

// Engine runs one intercepted invocation from decision to handoff.
type Engine struct {
	controller *security.SecurityController
	runner     ProgramRunner
	auditor    Auditor
	notifier   *terminal.Notifier
	log        *zap.Logger
}

// NewEngine creates a new engine. A nil auditor disables auditing.
func NewEngine(controller *security.SecurityController, runner ProgramRunner, auditor Auditor, notifier *terminal.Notifier, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		controller: controller,
		runner:     runner,
		auditor:    auditor,
		notifier:   notifier,
		log:        log,
	}
}

// Run decides the invocation and either hands it to the real program or
// refuses it. The return value is the process exit code.
func (e *Engine) Run(ctx context.Context, program string, argv []string) int {
	d := e.controller.Evaluate(program, argv)
	if d.Rule != nil {
		e.log.Debug("rule matched",
			zap.String("program", d.Program),
			zap.String("rule", d.Rule.ID),
			zap.Stringer("verdict", d.Verdict),
			zap.Bool("bypass", d.BypassUsed),
		)
	}

	realPath, lookupErr := e.runner.LookupReal(d.Program)

	// the decision is final; the record is written before handing off
	if d.Audited() && e.auditor != nil {
		e.auditor.Record(audit.NewRecord(
			d.Program, argv, d.Verdict.String(), d.Rule.ID, d.BypassUsed, d.ResourceClass(),
		))
	}

	if e.notifier != nil {
		e.notifier.Notice(d, realPath)
	}

	if d.Verdict == security.Block {
		return ExitBlocked
	}

	if lookupErr != nil {
		if e.notifier != nil {
			e.notifier.Error("%s: command not found", d.Program)
		}
		if !errors.Is(lookupErr, ErrNotFound) {
			e.log.Error("lookup failed", zap.String("program", d.Program), zap.Error(lookupErr))
		}
		return ExitNotFound
	}

	return e.runner.Exec(ctx, realPath, d.Program, e.controller.StripGuardArgs(d.Program, argv))
}
