package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sadopc/spacescope/internal/config"
	"github.com/sadopc/spacescope/internal/exclude"
	"github.com/sadopc/spacescope/internal/logger"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/remote"
	"github.com/sadopc/spacescope/internal/scanner"
	"github.com/sadopc/spacescope/internal/ui"
	"github.com/spf13/cobra"
)

// resolveSettings loads the config file and applies the flags the user set
// explicitly on top of it.
func resolveSettings(cmd *cobra.Command, opts *options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("jobs") {
		cfg.Concurrency = opts.jobs
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.logFile
	}
	cfg.Exclude = append(cfg.Exclude, splitList(opts.exclude)...)
	if flags.Changed("ssh-port") {
		cfg.SSH.Port = opts.sshPort
	}
	if flags.Changed("ssh-batch") {
		cfg.SSH.Batch = opts.sshBatch
	}
	if flags.Changed("ssh-timeout") {
		cfg.SSH.Timeout = opts.sshTimeout.String()
	}
	if flags.Changed("hide-small") {
		cfg.Display.HideSmall = opts.hideSmall
	}
	if flags.Changed("small-below") {
		cfg.Display.SmallBelow = opts.smallBelow
	}
	if flags.Changed("grey-below") {
		cfg.Display.GreyBelow = opts.greyBelow
		cfg.Display.GreySmall = opts.greyBelow != ""
	}
	if flags.Changed("hide-hidden") {
		cfg.Display.HideHidden = opts.hideHidden
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, ok := logger.ParseLevel(cfg.LogLevel); !ok && cfg.LogLevel != "" {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	return cfg, nil
}

func displayFilters(cfg *config.Config) (ui.Filters, error) {
	small, err := cfg.SmallThreshold()
	if err != nil {
		return ui.Filters{}, err
	}
	grey, err := cfg.GreyThreshold()
	if err != nil {
		return ui.Filters{}, err
	}
	return ui.Filters{
		HideSmall:  cfg.Display.HideSmall,
		SmallBelow: small,
		GreySmall:  cfg.Display.GreySmall,
		GreyBelow:  grey,
		HideHidden: cfg.Display.HideHidden,
	}, nil
}

// newLogger writes to cfg.LogFile when set, otherwise to fallback.
func newLogger(cfg *config.Config, fallback io.Writer) (*logger.Logger, error) {
	if cfg.LogFile != "" {
		return logger.OpenFile(cfg.LogFile, cfg.LogLevel)
	}
	return logger.New(fallback, cfg.LogLevel), nil
}

// session is an opened filesystem with a resolved root directory.
type session struct {
	fsys  scanner.FileSystem
	root  string
	flag  model.NodeFlag
	excl  *exclude.Set
	close func() error
}

func (s *session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openSession(ctx context.Context, cfg *config.Config, target scanTarget, log *logger.Logger) (*session, error) {
	if target.Remote {
		return openRemote(ctx, cfg, target, log)
	}
	return openLocal(cfg, target, log)
}

func openLocal(cfg *config.Config, target scanTarget, log *logger.Logger) (*session, error) {
	typed, err := filepath.Abs(target.LocalPath)
	if err != nil {
		return nil, err
	}
	root := typed
	if resolved, err := filepath.EvalSymlinks(typed); err == nil {
		root = resolved
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	excl := exclude.New()
	for _, p := range cfg.Exclude {
		resolved, err := resolveExclusion(p, typed, root)
		if err != nil {
			return nil, err
		}
		excl.Add(resolved)
	}
	log.Debugf("local root %s, %d exclusion(s)", root, excl.Len())

	return &session{fsys: scanner.LocalFS{}, root: root, excl: excl}, nil
}

// resolveExclusion maps p into the same namespace as the resolved root.
// Existing paths have their symlinks resolved; a missing path below the
// root as typed is rebased onto the resolved root.
func resolveExclusion(p, typedRoot, root string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid exclusion %q: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	if rel, err := filepath.Rel(typedRoot, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Join(root, rel), nil
	}
	return abs, nil
}

func openRemote(ctx context.Context, cfg *config.Config, target scanTarget, log *logger.Logger) (*session, error) {
	timeout, err := cfg.SSHTimeout()
	if err != nil {
		return nil, err
	}

	log.Infof("connecting to %s port %d", target.SSHDestination, cfg.SSH.Port)
	fsys, err := remote.Dial(ctx, remote.Config{
		Target:    target.SSHDestination,
		Port:      cfg.SSH.Port,
		BatchMode: cfg.SSH.Batch,
		Timeout:   timeout,
	})
	if err != nil {
		return nil, err
	}

	root, err := fsys.Resolve(target.RemotePath)
	if err != nil {
		_ = fsys.Close()
		return nil, err
	}

	excl := exclude.New()
	for _, p := range cfg.Exclude {
		if !strings.HasPrefix(p, "/") {
			p = fsys.Join(root, p)
		}
		excl.Add(p)
	}
	log.Debugf("remote root %s, %d exclusion(s)", root, excl.Len())

	return &session{
		fsys:  fsys,
		root:  root,
		flag:  model.FlagUsageEstimated,
		excl:  excl,
		close: fsys.Close,
	}, nil
}
