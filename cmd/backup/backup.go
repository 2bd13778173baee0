// Package backup provides the backup command for the training portal
package backup

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/learnforge/trainingportal/internal/backup"
	"github.com/learnforge/trainingportal/internal/backup/targets"
	"github.com/learnforge/trainingportal/internal/buildinfo"
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
	"github.com/learnforge/trainingportal/internal/store"
	"github.com/learnforge/trainingportal/internal/store/backend"
)

const runTimeout = 10 * time.Minute

// Command creates and returns the backup command
func Command(settings *conf.Settings, info *buildinfo.Info) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Perform an immediate backup of every collection",
		Long:  `Backup archives every collection of the configured store and copies the archive to the configured backup targets.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(settings, func(st store.Store) error {
				return runBackup(cmd, settings, info, st)
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List archives stored on the backup targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, settings)
		},
	}

	var yes bool
	restoreCmd := &cobra.Command{
		Use:   "restore [archive.zip]",
		Short: "Restore collections from a local backup archive",
		Long:  `Restore replaces every collection contained in the archive. Collections missing from the archive are left untouched.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("restore overwrites stored collections, pass --yes to confirm")
			}
			return withStore(settings, func(st store.Store) error {
				restored, err := backup.Restore(st, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d collections: %v\n", len(restored), restored)
				return nil
			})
		},
	}
	restoreCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm overwriting the stored collections")

	cmd.AddCommand(listCmd, restoreCmd)
	return cmd
}

// NewManager builds a backup manager for the configured targets
func NewManager(settings *conf.Settings, st store.Store, info *buildinfo.Info, m *metrics.IntegrationMetrics) (*backup.Manager, error) {
	tgts, err := targets.FromConfig(&settings.Backup)
	if err != nil {
		return nil, err
	}
	if len(tgts) == 0 {
		return nil, errors.Newf("no backup targets are enabled").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return backup.NewManager(st, tgts,
		backup.WithRetention(settings.Backup.Retention),
		backup.WithTempDir(settings.Backup.TempDir),
		backup.WithAppVersion(info.GetVersion()),
		backup.WithMetrics(m)), nil
}

func withStore(settings *conf.Settings, fn func(store.Store) error) error {
	st, closeStore, err := backend.Open(&settings.Storage, nil)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	return fn(st)
}

func runBackup(cmd *cobra.Command, settings *conf.Settings, info *buildinfo.Info, st store.Store) error {
	if !settings.Backup.Enabled {
		return fmt.Errorf("backup functionality is not enabled in configuration")
	}
	manager, err := NewManager(settings, st, info, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	meta, err := manager.Run(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backup %s completed: %d collections, %d bytes\n", meta.ID, len(meta.Collections), meta.Size)
	return nil
}

func runList(cmd *cobra.Command, settings *conf.Settings) error {
	tgts, err := targets.FromConfig(&settings.Backup)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tID\tTIMESTAMP\tSIZE")
	for _, t := range tgts {
		infos, err := t.List(ctx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", t.Name(), err)
			continue
		}
		for _, b := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.Name(), b.ID, b.Timestamp.Format(time.RFC3339), b.Size)
		}
	}
	return w.Flush()
}
