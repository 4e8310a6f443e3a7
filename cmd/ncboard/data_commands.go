package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ncboard/internal/config"
	"ncboard/internal/remote"
	"ncboard/internal/sheet"
)

// describeRemoteError turns a store failure into a user-facing hint.
func (c *commandContext) describeRemoteError(err error) string {
	switch {
	case err == nil:
		return ""
	case remote.IsUnauthorized(err):
		return "candidate store rejected the saved token; run `ncboard login`"
	case remote.IsUnavailable(err):
		return fmt.Sprintf("candidate store unreachable at %s", c.config.Remote.BaseURL)
	default:
		return err.Error()
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a roster spreadsheet (.xlsx, .xls or .csv) as the working set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := ctx.ingestService()
			if err != nil {
				return err
			}
			res, err := svc.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("import %s: %w", filepath.Base(args[0]), err)
			}
			if err := ctx.saveSession(); err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"file":          res.File,
					"snapshot":      res.Snapshot,
					"rows":          res.Rows,
					"cached":        res.Cached,
					"inserted":      res.Inserted,
					"refreshed":     res.Refreshed,
					"remote_error":  errorText(res.RemoteErr),
					"refresh_error": errorText(res.RefreshErr),
				})
			}
			out := cmd.OutOrStdout()
			ctx.status(out, "Import", statusOK, fmt.Sprintf("%d rows from %s", res.Rows, res.File))
			if res.Cached {
				ctx.status(out, "Cache", statusOK, "saved as "+res.Snapshot)
			} else {
				ctx.status(out, "Cache", statusWarn, "snapshot not saved; see the log file")
			}
			switch {
			case res.RemoteErr != nil:
				ctx.status(out, "Store", statusWarn, "not uploaded: "+ctx.describeRemoteError(res.RemoteErr))
			case res.RefreshErr != nil:
				ctx.status(out, "Store", statusWarn, fmt.Sprintf("%d inserted; refresh failed: %s", res.Inserted, ctx.describeRemoteError(res.RefreshErr)))
			default:
				ctx.status(out, "Store", statusOK, fmt.Sprintf("%d inserted", res.Inserted))
			}
			return nil
		},
	}
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Replace the working set with the candidate store's records",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := ctx.ingestService()
			if err != nil {
				return err
			}
			n, err := svc.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("refresh: %s", ctx.describeRemoteError(err))
			}
			if err := ctx.saveSession(); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]int{"records": n})
			}
			ctx.status(cmd.OutOrStdout(), "Refresh", statusOK, fmt.Sprintf("%d records", n))
			return nil
		},
	}
}

func newFilesCommand(ctx *commandContext) *cobra.Command {
	filesCmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"snapshots"},
		Short:   "Manage cached upload snapshots",
	}
	filesCmd.AddCommand(newFilesListCommand(ctx))
	filesCmd.AddCommand(newFilesShowCommand(ctx))
	filesCmd.AddCommand(newFilesLoadAllCommand(ctx))
	filesCmd.AddCommand(newFilesDeleteCommand(ctx))
	return filesCmd
}

func newFilesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := ctx.snapshotCache()
			all := cache.LoadAll()
			names := cache.Names()

			if ctx.jsonOutput() {
				type entry struct {
					Name       string    `json:"name"`
					SourceFile string    `json:"source_file_name"`
					Records    int       `json:"records"`
					SavedAt    time.Time `json:"saved_at"`
				}
				entries := make([]entry, 0, len(names))
				for _, name := range names {
					snap := all[name]
					entries = append(entries, entry{name, snap.SourceFilename, len(snap.Records), snap.SavedAt})
				}
				return writeJSON(cmd, entries)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cached snapshots")
				return nil
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				snap := all[name]
				saved := ""
				if !snap.SavedAt.IsZero() {
					saved = snap.SavedAt.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{name, snap.SourceFilename, strconv.Itoa(len(snap.Records)), saved})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Snapshot", "Source File", "Records", "Saved"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newFilesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <snapshot>",
		Short: "Make one cached snapshot the working set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, ok := ctx.snapshotCache().LoadOne(args[0])
			if !ok {
				return fmt.Errorf("snapshot %q not found", args[0])
			}
			sess, err := ctx.loadSession()
			if err != nil {
				return err
			}
			sess.Replace(records)
			if err := ctx.saveSession(); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, records)
			}
			ctx.status(cmd.OutOrStdout(), "Snapshot", statusOK, fmt.Sprintf("%s loaded (%d records)", args[0], len(records)))
			return nil
		},
	}
}

func newFilesLoadAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "load-all",
		Short: "Merge every cached snapshot into the working set",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := ctx.ingestService()
			if err != nil {
				return err
			}
			n, ok := svc.LoadAll()
			if !ok {
				return fmt.Errorf("no cached snapshots")
			}
			if err := ctx.saveSession(); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]int{"records": n})
			}
			ctx.status(cmd.OutOrStdout(), "Snapshots", statusOK, fmt.Sprintf("%d records after merge", n))
			return nil
		},
	}
}

func newFilesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <snapshot>",
		Short: "Delete a snapshot and the store records imported from its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := ctx.ingestService()
			if err != nil {
				return err
			}
			res, err := svc.RemoveSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := ctx.saveSession(); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"snapshot":          res.Snapshot,
					"source_file":       res.SourceFile,
					"deleted":           res.Deleted,
					"remaining_sources": res.RemainingSources,
					"local_removed":     res.LocalRemoved,
					"refreshed":         res.Refreshed,
					"remote_error":      errorText(res.RemoteErr),
				})
			}
			out := cmd.OutOrStdout()
			if res.RemoteErr != nil {
				ctx.status(out, "Store", statusWarn, "records kept: "+ctx.describeRemoteError(res.RemoteErr))
			} else {
				msg := fmt.Sprintf("%d records from %s deleted", res.Deleted, res.SourceFile)
				if len(res.RemainingSources) > 0 {
					msg += "; remaining files: " + strings.Join(res.RemainingSources, ", ")
				}
				ctx.status(out, "Store", statusOK, msg)
			}
			if res.LocalRemoved {
				ctx.status(out, "Cache", statusOK, res.Snapshot+" removed")
			} else {
				ctx.status(out, "Cache", statusWarn, "snapshot could not be removed; see the log file")
			}
			return nil
		},
	}
}

func newTemplateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "template [path]",
		Short:       "Write a blank roster template workbook",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "ncboard-template.xlsx"
			if len(args) == 1 {
				target = args[0]
			}
			expanded, err := config.ExpandPath(target)
			if err != nil {
				return err
			}
			if err := sheet.WriteTemplate(expanded); err != nil {
				return err
			}
			ctx.status(cmd.OutOrStdout(), "Template", statusOK, expanded)
			return nil
		},
	}
}
