package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/history"
	"github.com/entrhq/threadsweep/pkg/page"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		formatFlag string
		limit      int
		colorFlags colorChoice
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List remembered results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(flags, func(a *app) error {
				store, err := a.history()
				if err != nil {
					return err
				}
				entries := store.List()
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}

				out := cmd.OutOrStdout()
				switch strings.ToLower(formatFlag) {
				case "", "table":
					return writeHistoryTable(out, entries, terminalWidth(out), colorFlags.resolve(out))
				case "json":
					return writeJSON(out, entries, colorFlags.resolve(out))
				case "plain":
					return writeHistoryPlain(out, entries)
				default:
					return fmt.Errorf("unsupported format: %s", formatFlag)
				}
			})
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "table", "output format: table, plain or json")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many entries (0 means all)")
	colorFlags.register(cmd)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "remove <thread-id>",
			Short: "Forget the result for one conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(flags, func(a *app) error {
					store, err := a.history()
					if err != nil {
						return err
					}
					id := threadID(args[0])
					if _, ok := store.Get(id); !ok {
						return fmt.Errorf("no stored result for %s", id)
					}
					if err := store.Remove(id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget every result",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(flags, func(a *app) error {
					store, err := a.history()
					if err != nil {
						return err
					}
					n := store.Len()
					if err := store.Clear(); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
					return nil
				})
			},
		},
	)
	return cmd
}

// threadID accepts a conversation path with or without its leading slash.
func threadID(arg string) page.Identity {
	p := page.NormalizePath(strings.TrimSpace(arg))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return page.Identity(p)
}

func writeHistoryPlain(w io.Writer, entries []history.Entry) error {
	if _, err := fmt.Fprintln(w, "timestamp\tthread_id\tvalue\trecommendation\tcategory\tsummary"); err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s",
			e.Timestamp.Format(time.RFC3339),
			e.Identity,
			e.Evaluation.FormatValue(),
			e.Evaluation.DisplayRecommendation(),
			e.Evaluation.Category,
			strings.ReplaceAll(e.Evaluation.Summary, "\n", "\\n"),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// writeHistoryTable renders entries with the summary column sized to fit width.
func writeHistoryTable(w io.Writer, entries []history.Entry, width int, color bool) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Format.Header = text.FormatDefault
	if !color {
		tw.Style().Color = table.ColorOptions{}
	}

	// Fixed columns take roughly 70 cells including borders.
	summaryWidth := width - 70
	if summaryWidth < 20 {
		summaryWidth = 20
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, WidthMax: 24},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignCenter},
		{Number: 5, Align: text.AlignLeft, WidthMax: 16},
		{Number: 6, Align: text.AlignLeft, WidthMax: summaryWidth},
	})
	tw.AppendHeader(table.Row{"Analyzed", "Thread", "Value", "Recommendation", "Category", "Summary"})

	for _, e := range entries {
		rec := e.Evaluation.DisplayRecommendation()
		if color {
			rec = recommendationColors(e.Evaluation.Recommendation).Sprint(rec)
		}
		tw.AppendRow(table.Row{
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.Identity,
			e.Evaluation.FormatValue() + "/10",
			rec,
			e.Evaluation.Category,
			strings.ReplaceAll(e.Evaluation.Summary, "\n", " "),
		})
	}
	if len(entries) == 0 {
		tw.AppendRow(table.Row{"-", "(no results)", "-", "-", "-", "-"})
	}

	_ = tw.Render()
	return nil
}

func recommendationColors(rec evaluation.Recommendation) text.Colors {
	known, _ := evaluation.ParseRecommendation(string(rec))
	switch known {
	case evaluation.Archive:
		return text.Colors{text.FgYellow, text.Bold}
	case evaluation.Delete:
		return text.Colors{text.FgRed, text.Bold}
	default:
		return text.Colors{text.FgGreen, text.Bold}
	}
}
