package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cloudctl/wal"
)

// auditSummary is the part of an audit record worth a table column
type auditSummary struct {
	Name     string   `json:"name"`
	Provider string   `json:"provider"`
	Mode     string   `json:"mode"`
	Fields   []string `json:"fields"`
	Revision int64    `json:"revision"`
}

func newAuditCmd(a *app) *cobra.Command {
	var (
		since     time.Duration
		entryType string
		cloudID   string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the submission audit log",
		Example: `  cloudctl audit                  # Last 24 hours
  cloudctl audit --since 168h --type rejected
  cloudctl audit --cloud cloud-1 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output, outputTable, outputJSON); err != nil {
				return err
			}

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}

			var entries []*wal.Entry
			err := wal.Replay(a.cfg.WAL.Dir, "", from, func(e *wal.Entry) error {
				if entryType != "" && string(e.Type) != entryType {
					return nil
				}
				if cloudID != "" && e.CloudID != cloudID {
					return nil
				}
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return fmt.Errorf("read audit log: %w", err)
			}

			w := cmd.OutOrStdout()
			if output == outputJSON {
				return writeJSON(w, entries)
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tTIME\tTYPE\tCLOUD\tNAME\tDETAIL")
			for _, e := range entries {
				var s auditSummary
				if len(e.Data) > 0 {
					_ = json.Unmarshal(e.Data, &s)
				}
				detail := e.Error
				if len(s.Fields) > 0 {
					detail = strings.Join(s.Fields, ",")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					e.Sequence,
					e.Timestamp.Format("2006-01-02 15:04:05"),
					e.Type,
					orDash(e.CloudID),
					orDash(s.Name),
					orDash(detail),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Only entries newer than this; 0 shows everything")
	cmd.Flags().StringVar(&entryType, "type", "", "Only entries of this type: submitted, saved, rejected, failed, deleted")
	cmd.Flags().StringVar(&cloudID, "cloud", "", "Only entries for this cloud id")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json")
	return cmd
}

func newCompactCmd(a *app) *cobra.Command {
	var keep int64

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Drop old storage history and expired audit files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.Storage.KeepRevisions
			}
			store, err := a.Store()
			if err != nil {
				return err
			}
			audit, err := a.Audit()
			if err != nil {
				return err
			}

			removed, err := store.Compact(keep)
			if err != nil {
				return fmt.Errorf("compact storage: %w", err)
			}
			stats, err := audit.Prune()
			if err != nil {
				return fmt.Errorf("prune audit log: %w", err)
			}

			success(cmd.OutOrStdout(), "Removed %d history records", removed)
			success(cmd.OutOrStdout(), "Removed %d audit files (%d bytes)", stats.FilesRemoved, stats.BytesFreed)
			return nil
		},
	}
	cmd.Flags().Int64Var(&keep, "keep", 0, "Revisions of history to keep (default from config)")
	return cmd
}
