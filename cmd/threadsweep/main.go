// Package main provides the threadsweep command: it reads the open AI chat
// conversation from a browser tab (or a saved page), asks a language model
// whether it is worth keeping, and drives the site's own archive and delete
// menu items.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	historyPath string
	envFile     string

	htmlPath string
	pageURL  string

	cdpEndpoint string
	userDataDir string
	headless    bool

	provider string
	model    string
	baseURL  string
	apiKey   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "threadsweep",
		Short:         "Judge and tidy AI chat conversations",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (.json, .yaml or .yml; default ~/.threadsweep/config.json)")
	pf.StringVar(&flags.historyPath, "history-file", "", "history file (default ~/.threadsweep/history.json)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&flags.htmlPath, "html", "", "read a saved page instead of a browser tab")
	pf.StringVar(&flags.pageURL, "url", "https://chatgpt.com/", "address of the page given with --html")
	pf.StringVar(&flags.cdpEndpoint, "cdp", "", "attach to a running Chromium at this CDP endpoint")
	pf.StringVar(&flags.userDataDir, "user-data-dir", "", "launch Chromium with this profile directory")
	pf.BoolVar(&flags.headless, "headless", false, "launch Chromium without a window")
	pf.StringVar(&flags.provider, "provider", "", "model provider: openai or gemini")
	pf.StringVar(&flags.model, "model", "", "model name")
	pf.StringVar(&flags.baseURL, "base-url", "", "API base URL")
	pf.StringVar(&flags.apiKey, "api-key", "", "API key")

	root.AddCommand(
		newExtractCmd(flags),
		newAnalyzeCmd(flags),
		newMenuCmd(flags, "archive", "Archive the open conversation using the site's menu", archiveAction),
		newMenuCmd(flags, "delete", "Delete the open conversation using the site's menu", deleteAction),
		newBadgeCmd(flags),
		newHistoryCmd(flags),
		newServeCmd(flags),
		newPopupCmd(flags),
		newPromptCmd(flags),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "threadsweep: %v\n", err)
		os.Exit(1)
	}
}
