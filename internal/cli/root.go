// Package cli wires the spacescope commands together.
package cli

import (
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/spacescope/internal/coordinator"
	"github.com/sadopc/spacescope/internal/ui"
	"github.com/spf13/cobra"
)

const defaultExportPath = "spacescope-export.json"

// options holds the flags shared by every command.
type options struct {
	configPath string
	exclude    []string
	jobs       int
	logLevel   string
	logFile    string

	sshPort    int
	sshBatch   bool
	sshTimeout time.Duration

	hideSmall  bool
	smallBelow string
	greyBelow  string
	hideHidden bool
}

// NewRootCommand creates the spacescope command tree.
func NewRootCommand(version string) *cobra.Command {
	cmd, _ := newRootCommand(version)
	return cmd
}

func newRootCommand(version string) (*cobra.Command, *options) {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "spacescope [path | user@host [remote-path]]",
		Short: "Interactive disk usage explorer",
		Long: `spacescope sizes a directory tree in the background and lets you
browse it one level at a time. Directories are listed only when you open
them; excluded paths are skipped by every scan that follows.

Remote trees are read over SFTP:
  spacescope alice@server /var/log`,
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts, version, args)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/spacescope/config.yaml)")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "path to exclude (repeatable or comma separated)")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "max concurrent directory reads (0 = auto)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	f.StringVar(&opts.logFile, "log-file", "", "append log lines to this file")
	f.IntVar(&opts.sshPort, "ssh-port", 22, "SSH port for remote targets")
	f.BoolVar(&opts.sshBatch, "ssh-batch", false, "never prompt for passwords or host keys")
	f.DurationVar(&opts.sshTimeout, "ssh-timeout", 15*time.Second, "SSH connection timeout")

	f.BoolVar(&opts.hideSmall, "hide-small", false, "hide entries smaller than --small-below")
	f.StringVar(&opts.smallBelow, "small-below", "", "size under which entries are small, e.g. \"10 MB\"")
	f.StringVar(&opts.greyBelow, "grey-below", "", "grey out entries smaller than this size")
	f.BoolVar(&opts.hideHidden, "hide-hidden", false, "hide dotfiles")

	cmd.AddCommand(newScanCommand(opts, version))
	return cmd, opts
}

func runTUI(cmd *cobra.Command, opts *options, version string, args []string) error {
	cfg, err := resolveSettings(cmd, opts)
	if err != nil {
		return err
	}
	target, err := resolveScanTarget(args)
	if err != nil {
		return err
	}
	filters, err := displayFilters(cfg)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so logs only go to a file.
	log, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer log.Close()

	sess, err := openSession(cmd.Context(), cfg, target, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	coord := coordinator.New(sess.fsys, coordinator.Options{
		Concurrency: cfg.Concurrency,
		Exclusions:  sess.excl,
		Logger:      log,
		NodeFlag:    sess.flag,
	})
	defer coord.Close()

	app := ui.NewApp(coord, sess.root, filters)
	app.ExportPath = defaultExportPath
	app.Version = version

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return err
	}
	return app.FatalError()
}
