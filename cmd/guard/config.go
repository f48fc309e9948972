package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Lin-Jiong-HDU/guard/internal/storage"
	"github.com/Lin-Jiong-HDU/guard/internal/terminal"
)

// getConfigCommand returns the config command
func getConfigCommand(app func() *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}
	cmd.AddCommand(getConfigShowCommand(app), getConfigSetCommand())
	return cmd
}

func getConfigShowCommand(app func() *application) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(configView(app().cfg))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func getConfigSetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one option and save the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			// a broken file must not be overwritten with defaults
			cfg, err := storage.InitConfig()
			if err != nil {
				return err
			}

			if key == "protect_enabled" && !yes {
				if enable, err := strconv.ParseBool(value); err == nil && !enable {
					ok, err := terminal.ConfirmWithIO(
						"Disable protection of credentials and system paths?",
						cmd.InOrStdin(), cmd.ErrOrStderr(),
					)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "aborted")
						return nil
					}
				}
			}

			if err := storage.SetValue(cfg, key, value); err != nil {
				return err
			}
			if err := storage.SaveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

type validatorView struct {
	Name           string   `yaml:"name"`
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
}

type hooksView struct {
	Jobs       int             `yaml:"jobs"`
	Validators []validatorView `yaml:"validators"`
}

type configViewDoc struct {
	AuditLogPath    string    `yaml:"audit_log_path"`
	LogMaxSizeBytes int64     `yaml:"log_max_size_bytes"`
	LogMaxBackups   int       `yaml:"log_max_backups"`
	ProtectEnabled  bool      `yaml:"protect_enabled"`
	AuditEnabled    bool      `yaml:"audit_enabled"`
	LockTimeoutMS   int       `yaml:"lock_timeout_ms"`
	WrapperDir      string    `yaml:"wrapper_dir"`
	ErrorLogPath    string    `yaml:"error_log_path"`
	Debug           bool      `yaml:"debug"`
	Hooks           hooksView `yaml:"hooks"`
}

func configView(cfg *storage.Config) configViewDoc {
	doc := configViewDoc{
		AuditLogPath:    cfg.AuditLogPath,
		LogMaxSizeBytes: cfg.LogMaxSizeBytes,
		LogMaxBackups:   cfg.LogMaxBackups,
		ProtectEnabled:  cfg.ProtectEnabled,
		AuditEnabled:    cfg.AuditEnabled,
		LockTimeoutMS:   cfg.LockTimeoutMS,
		WrapperDir:      cfg.WrapperDir,
		ErrorLogPath:    cfg.ErrorLogPath,
		Debug:           cfg.Debug,
		Hooks: hooksView{
			Jobs:       cfg.Hooks.Jobs,
			Validators: []validatorView{},
		},
	}
	for _, v := range cfg.Hooks.Validators {
		doc.Hooks.Validators = append(doc.Hooks.Validators, validatorView{
			Name:           v.Name,
			Command:        v.Command,
			Args:           v.Args,
			TimeoutSeconds: v.TimeoutSeconds,
		})
	}
	return doc
}
