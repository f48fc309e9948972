package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/guard/internal/audit"
	"github.com/Lin-Jiong-HDU/guard/internal/core"
	"github.com/Lin-Jiong-HDU/guard/internal/core/rules"
	"github.com/Lin-Jiong-HDU/guard/internal/core/security"
	"github.com/Lin-Jiong-HDU/guard/internal/logging"
	"github.com/Lin-Jiong-HDU/guard/internal/storage"
	"github.com/Lin-Jiong-HDU/guard/internal/terminal"
)

// application is the state shared by the wrapper path and the CLI.
type application struct {
	cfg        *storage.Config
	log        *zap.Logger
	closeLog   func()
	controller *security.SecurityController
}

// newApplication loads configuration and builds the controller. An unreadable
// config file never stops a wrapper: defaults apply and the failure goes to
// the error log.
func newApplication(console io.Writer) (*application, error) {
	cfg, cfgErr := storage.InitConfig()
	if cfgErr != nil {
		cfg = storage.DefaultConfig()
	}

	log, closeLog := logging.New(logging.Options{
		ErrorLogPath: cfg.ErrorLogPath,
		Debug:        cfg.Debug,
		Console:      console,
	})
	if cfgErr != nil {
		log.Warn("config unreadable, using defaults", zap.Error(cfgErr))
	}

	policy := security.DefaultPolicy()
	policy.ProtectEnabled = cfg.ProtectEnabled
	if dir, err := storage.GetConfigDir(); err == nil {
		policy.GuardHome = dir
	}

	registry, err := rules.LoadBuiltin()
	if err != nil {
		log.Error("rule packs invalid", zap.Error(err))
		closeLog()
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	controller, err := security.NewSecurityController(policy, registry)
	if err != nil {
		log.Error("controller setup failed", zap.Error(err))
		closeLog()
		return nil, err
	}

	return &application{
		cfg:        cfg,
		log:        log,
		closeLog:   closeLog,
		controller: controller,
	}, nil
}

// Auditor returns the audit logger, or nil when auditing is disabled.
func (a *application) Auditor() core.Auditor {
	if !a.cfg.AuditEnabled {
		return nil
	}
	return audit.NewLogger(audit.Options{
		Path:         a.cfg.AuditLogPath,
		MaxSizeBytes: a.cfg.LogMaxSizeBytes,
		MaxBackups:   a.cfg.LogMaxBackups,
		LockTimeout:  a.cfg.LockTimeout(),
	}, a.log)
}

// Engine builds the engine that runs intercepted invocations.
func (a *application) Engine(stderr io.Writer) *core.Engine {
	return core.NewEngine(
		a.controller,
		core.NewExecutor(a.cfg.WrapperDir),
		a.Auditor(),
		terminal.NewNotifier(stderr),
		a.log,
	)
}

// Close flushes the error log.
func (a *application) Close() {
	a.closeLog()
}
