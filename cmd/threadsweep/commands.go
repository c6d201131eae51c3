package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/entrhq/threadsweep/pkg/analyzer"
	"github.com/entrhq/threadsweep/pkg/automation"
	"github.com/entrhq/threadsweep/pkg/bridge"
	"github.com/entrhq/threadsweep/pkg/page"
	"github.com/entrhq/threadsweep/pkg/popup"
)

// run opens the app around fn and always closes it.
func run(flags *globalFlags, fn func(a *app) error) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newExtractCmd(flags *globalFlags) *cobra.Command {
	var colorFlags colorChoice

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the open conversation as JSON messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(flags, func(a *app) error {
				f, err := a.openPage(cmd.Context())
				if err != nil {
					return err
				}
				resp := f.Handle(cmd.Context(), automation.Request{Type: automation.GetThreadMessages})
				if err := responseErr(resp, "extraction"); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				return writeJSON(out, resp.Messages, colorFlags.resolve(out))
			})
		},
	}
	colorFlags.register(cmd)
	return cmd
}

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	var (
		copyResult bool
		noBadge    bool
		colorFlags colorChoice
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Evaluate the open conversation and remember the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(flags, func(a *app) error {
				ctx := cmd.Context()
				f, err := a.openPage(ctx)
				if err != nil {
					return err
				}
				if a.analyzerErr != nil {
					return withHint(a.analyzerErr)
				}

				got := f.Handle(ctx, automation.Request{Type: automation.GetThreadMessages})
				if err := responseErr(got, "extraction"); err != nil {
					return err
				}
				if len(got.Messages) == 0 {
					return fmt.Errorf("no messages found on this page; scroll the conversation into view and try again")
				}

				resp := f.Handle(ctx, automation.Request{Type: automation.AnalyzeThread, Messages: got.Messages})
				if err := responseErr(resp, "analysis"); err != nil {
					return withHint(err)
				}
				eval := *resp.Analysis
				id := page.Identity(got.ThreadID)

				store, err := a.history()
				if err != nil {
					return err
				}
				if err := store.Save(id, eval); err != nil {
					return err
				}
				if err := store.SetPending(id, eval); err != nil {
					return err
				}

				if copyResult {
					if err := clipboard.WriteAll(popup.FormatResult(eval)); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: copy failed: %v\n", err)
					}
				}
				if !noBadge {
					badge := f.Handle(ctx, automation.Request{Type: automation.ShowBadge, Analysis: &eval, ThreadID: string(id)})
					if err := responseErr(badge, "badge"); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
					}
				}

				out := cmd.OutOrStdout()
				return writeJSON(out, eval, colorFlags.resolve(out))
			})
		},
	}
	cmd.Flags().BoolVar(&copyResult, "copy", false, "copy the result to the clipboard")
	cmd.Flags().BoolVar(&noBadge, "no-badge", false, "do not show the result on the page")
	colorFlags.register(cmd)
	return cmd
}

type menuAction struct {
	request automation.RequestType
	done    string
}

var (
	archiveAction = menuAction{request: automation.TriggerArchive, done: "archived"}
	deleteAction  = menuAction{request: automation.TriggerDelete, done: "deleted"}
)

func newMenuCmd(flags *globalFlags, use, short string, action menuAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(flags, func(a *app) error {
				f, err := a.openPage(cmd.Context())
				if err != nil {
					return err
				}
				id := f.Identity()
				resp := f.Handle(cmd.Context(), automation.Request{Type: action.request})
				if !resp.OK {
					return fmt.Errorf("could not %s %s: menu item not found", use, id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", action.done, id)
				return nil
			})
		},
	}
}

func newBadgeCmd(flags *globalFlags) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "badge",
		Short: "Show the stored result for the open conversation on the page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(flags, func(a *app) error {
				ctx := cmd.Context()
				f, err := a.openPage(ctx)
				if err != nil {
					return err
				}
				store, err := a.history()
				if err != nil {
					return err
				}
				id := f.Identity()
				entry, ok := store.Get(id)
				if !ok {
					return fmt.Errorf("no stored result for %s; run analyze first", id)
				}
				resp := f.Handle(ctx, automation.Request{Type: automation.ShowBadge, Analysis: &entry.Evaluation, ThreadID: string(id)})
				if err := responseErr(resp, "badge"); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, entry.Evaluation.BadgeText())
				if wait {
					waitForDismissal(ctx, f)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "keep running until the badge is dismissed or the conversation changes")
	return cmd
}

// waitForDismissal blocks while the page badge is live.
func waitForDismissal(ctx context.Context, f *automation.Facade) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for f.Indicator().Active() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		addr  string
		stdio bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve automation requests over WebSocket or stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(flags, func(a *app) error {
				ctx := cmd.Context()
				f, err := a.openPage(ctx)
				if err != nil {
					return err
				}

				if stdio {
					return bridge.ServeStdio(ctx, f, os.Stdin, cmd.OutOrStdout(), a.logger.Named("bridge"))
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "listening on ws://%s%s\n", addr, bridge.DefaultPath)
				return bridge.NewWebSocketServer(f, a.logger.Named("bridge")).ListenAndServe(ctx, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "WebSocket listen address")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "read newline-delimited JSON requests from stdin instead")
	return cmd
}

func newPopupCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "popup",
		Short: "Interactive view of the open conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(flags, func(a *app) error {
				ctx := cmd.Context()
				f, err := a.openPage(ctx)
				if err != nil {
					return err
				}
				store, err := a.history()
				if err != nil {
					return err
				}
				return popup.Run(ctx, popup.Options{
					Handler:  f,
					Identity: f.Identity(),
					History:  store,
					Logger:   a.logger.Named("popup"),
				})
			})
		},
	}
}

func newPromptCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt sent to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(flags, func(a *app) error {
				fmt.Fprintln(cmd.OutOrStdout(), analyzer.SystemPrompt(a.promptOptions()))
				return nil
			})
		},
	}
}
