package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sadopc/spacescope/internal/coordinator"
	"github.com/sadopc/spacescope/internal/logger"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/ops"
	"github.com/sadopc/spacescope/internal/scanner"
	"github.com/spf13/cobra"
)

type scanOptions struct {
	depth      int
	exportPath string
	importPath string
}

func newScanCommand(opts *options, version string) *cobra.Command {
	sopts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [path | user@host [remote-path]]",
		Short: "Size a directory without the interactive view",
		Long: `Scan sizes the target, lists it down to --depth levels and exits.

With --export the loaded part of the tree is written as ncdu-compatible JSON
("-" for stdout). Directories that were not listed are marked unloaded.
With --import a previous export is summarised or re-exported instead.`,
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sopts.depth < 0 {
				return fmt.Errorf("--depth must be >= 0")
			}
			if sopts.importPath != "" {
				if len(args) > 0 {
					return fmt.Errorf("--import cannot be used with a scan target")
				}
				return runImport(cmd.OutOrStdout(), sopts, version)
			}
			return runScan(cmd, opts, sopts, version, args)
		},
	}

	cmd.Flags().IntVar(&sopts.depth, "depth", 1, "levels of directories to list")
	cmd.Flags().StringVar(&sopts.exportPath, "export", "", "write the tree as JSON to FILE (- for stdout)")
	cmd.Flags().StringVar(&sopts.importPath, "import", "", "read a previous export instead of scanning")
	return cmd
}

func runScan(cmd *cobra.Command, opts *options, sopts *scanOptions, version string, args []string) error {
	cfg, err := resolveSettings(cmd, opts)
	if err != nil {
		return err
	}
	target, err := resolveScanTarget(args)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	log, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sess, err := openSession(ctx, cfg, target, log)
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

	var onProgress func(scanner.Progress)
	if isTerminal(stderr) {
		onProgress = func(p scanner.Progress) {
			fmt.Fprintf(stderr, "\r\033[KScanning %s: %d files, %d dirs, %d errors...",
				target, p.FilesScanned, p.DirsScanned, p.Errors)
		}
		defer fmt.Fprint(stderr, "\r\033[K")
	}

	ev, err := follow(ctx, coord.StartScan(sess.root), onProgress)
	if err != nil {
		return err
	}
	if err := outcome(ev); err != nil {
		return err
	}
	log.Debugf("scanned %s: %d files, %d dirs, %d errors",
		sess.root, ev.Totals.Files, ev.Totals.Dirs, ev.Totals.Errors)

	if err := expandTree(ctx, coord, log, sess.root, sopts.depth, true); err != nil {
		return err
	}
	root := coord.Root()
	return report(cmd.OutOrStdout(), root, sopts, version)
}

func runImport(out io.Writer, sopts *scanOptions, version string) error {
	root, err := ops.ImportJSON(sopts.importPath)
	if err != nil {
		return err
	}
	return report(out, root, sopts, version)
}

// report prints the tree, exports it, or both. Exporting to stdout
// suppresses the listing so the output stays valid JSON.
func report(out io.Writer, root *model.Node, sopts *scanOptions, version string) error {
	if sopts.exportPath == "-" {
		return ops.Export(out, root, version)
	}

	newPrinter(out).tree(root, sopts.depth)

	if sopts.exportPath != "" {
		if err := ops.ExportJSON(root, sopts.exportPath, version); err != nil {
			return fmt.Errorf("export error: %w", err)
		}
		fmt.Fprintf(out, "Exported to %s\n", sopts.exportPath)
	}
	return nil
}

// follow drains sub until its terminal event, passing progress to
// onProgress when it is set.
func follow(ctx context.Context, sub *coordinator.Subscription, onProgress func(scanner.Progress)) (coordinator.Event, error) {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return coordinator.Event{}, fmt.Errorf("%s: no result delivered", sub.Subject.Path)
			}
			if !ev.Terminal() {
				if onProgress != nil {
					onProgress(ev.Progress)
				}
				continue
			}
			return ev, nil
		case <-ctx.Done():
			return coordinator.Event{}, ctx.Err()
		}
	}
}

func outcome(ev coordinator.Event) error {
	switch ev.Kind {
	case coordinator.EventCompleted:
		return nil
	case coordinator.EventFailed:
		return ev.Err
	default:
		return errors.New("scan was cancelled")
	}
}

// expandTree lists path and its subdirectories down to depth levels. Only a
// failure on the top directory is an error; deeper ones are logged.
func expandTree(ctx context.Context, coord *coordinator.Coordinator, log *logger.Logger, path string, depth int, top bool) error {
	if depth <= 0 {
		return nil
	}
	ev, err := follow(ctx, coord.Expand(path), nil)
	if err != nil {
		return err
	}
	if err := outcome(ev); err != nil {
		if top {
			return err
		}
		log.Warnf("cannot list %s: %v", path, err)
		return nil
	}

	for _, child := range ev.Children {
		if !child.IsDir || child.Flag&model.FlagSymlink != 0 {
			continue
		}
		if err := expandTree(ctx, coord, log, child.Path, depth-1, false); err != nil {
			return err
		}
	}
	return nil
}
