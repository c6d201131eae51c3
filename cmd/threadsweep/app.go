package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/threadsweep/pkg/analyzer"
	"github.com/entrhq/threadsweep/pkg/automation"
	"github.com/entrhq/threadsweep/pkg/config"
	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/history"
	"github.com/entrhq/threadsweep/pkg/logging"
	"github.com/entrhq/threadsweep/pkg/page"
	"github.com/entrhq/threadsweep/pkg/page/htmldoc"
	"github.com/entrhq/threadsweep/pkg/page/live"
	"github.com/entrhq/threadsweep/pkg/transcript"
)

// app is the per-invocation wiring: settings, the page and the facade over it.
type app struct {
	flags  *globalFlags
	cfg    *config.Manager
	logger *logging.Logger

	sessions *live.SessionManager
	doc      page.Document
	facade   *automation.Facade
	store    *history.Store

	// analyzerErr is why no model backend could be built, if any.
	analyzerErr error
}

// newApp loads settings. The page is opened separately so commands that do not
// touch it never start a browser.
func newApp(flags *globalFlags) (*app, error) {
	logger, err := logging.NewLogger("threadsweep")
	if err != nil {
		logger.Warnf("file logging unavailable: %v", err)
	}

	if err := config.LoadDotEnv(flags.envFile); err != nil {
		logger.Warnf("%v", err)
	}

	cfg, err := config.New(flags.configPath)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &app{flags: flags, cfg: cfg, logger: logger}, nil
}

// Close releases the browser session and the log file. A badge shown in an
// attached browser stays on the page.
func (a *app) Close() {
	if a.sessions != nil {
		if err := a.sessions.Shutdown(); err != nil {
			a.logger.Warnf("browser shutdown failed: %v", err)
		}
	}
	_ = a.logger.Close()
}

// openPage connects to the chat page and builds the facade. When the model
// backend cannot be built, analysis requests fail with the reason and
// everything else keeps working.
func (a *app) openPage(ctx context.Context) (*automation.Facade, error) {
	if a.facade != nil {
		return a.facade, nil
	}

	doc, err := a.document()
	if err != nil {
		return nil, err
	}
	a.doc = doc

	var an automation.Analyzer
	if built, err := a.analyzer(ctx); err != nil {
		a.analyzerErr = err
		a.logger.Warnf("analysis unavailable: %v", err)
		an = unavailableAnalyzer{err: err, prompt: analyzer.SystemPrompt(a.promptOptions())}
	} else {
		an = built
	}
	a.facade = automation.New(doc,
		automation.WithAnalyzer(an),
		automation.WithLogger(a.logger.Named("automation")))
	return a.facade, nil
}

func (a *app) document() (page.Document, error) {
	if a.flags.htmlPath != "" {
		doc, err := htmldoc.Open(a.flags.htmlPath, a.flags.pageURL)
		if err != nil {
			return nil, err
		}
		a.logger.Infof("reading saved page %s as %s", a.flags.htmlPath, a.flags.pageURL)
		return doc, nil
	}

	settings := a.browserSettings()
	hosts, err := live.NewHostMatcher(settings.Hosts)
	if err != nil {
		return nil, err
	}

	a.sessions = live.NewSessionManager(hosts, a.logger.Named("browser"))
	if err := a.sessions.Initialize(); err != nil {
		return nil, err
	}
	if _, err := a.sessions.Open(live.SessionOptions{
		CDPEndpoint: settings.CDPEndpoint,
		UserDataDir: settings.UserDataDir,
		Headless:    settings.Headless,
	}); err != nil {
		return nil, err
	}
	return a.sessions.Document()
}

// browserSettings merges command-line browser flags over the config file.
func (a *app) browserSettings() config.BrowserSettings {
	settings := config.NewBrowserSection().Snapshot()
	if b := a.cfg.Browser(); b != nil {
		settings = b.Snapshot()
	}
	if a.flags.cdpEndpoint != "" {
		settings.CDPEndpoint = a.flags.cdpEndpoint
	}
	if a.flags.userDataDir != "" {
		settings.UserDataDir = a.flags.userDataDir
	}
	if a.flags.headless {
		settings.Headless = true
	}
	return settings
}

func (a *app) overrides() config.Overrides {
	return config.Overrides{
		Provider: a.flags.provider,
		Model:    a.flags.model,
		BaseURL:  a.flags.baseURL,
		APIKey:   a.flags.apiKey,
	}
}

func (a *app) analyzer(ctx context.Context) (*analyzer.Analyzer, error) {
	return config.BuildAnalyzer(ctx, a.cfg, a.overrides(), a.logger.Named("analyzer"))
}

// promptOptions is the analysis personalization from the config file.
func (a *app) promptOptions() analyzer.PromptOptions {
	settings := config.NewAnalysisSection().Snapshot()
	if s := a.cfg.Analysis(); s != nil {
		settings = s.Snapshot()
	}
	return analyzer.PromptOptions{
		UserProfile:  settings.UserProfile,
		Interests:    settings.Interests,
		Categories:   settings.Categories,
		CustomPrompt: settings.CustomPrompt,
	}
}

func (a *app) history() (*history.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := history.Open(a.flags.historyPath, history.WithLogger(a.logger.Named("history")))
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// unavailableAnalyzer reports why analysis cannot run.
type unavailableAnalyzer struct {
	err    error
	prompt string
}

func (u unavailableAnalyzer) Analyze(context.Context, transcript.Transcript) (*evaluation.Evaluation, error) {
	return nil, u.err
}

func (u unavailableAnalyzer) SystemPrompt() string {
	return u.prompt
}

// responseErr turns a failed facade response into an error.
func responseErr(resp automation.Response, what string) error {
	if resp.OK {
		return nil
	}
	if resp.Error != "" {
		return fmt.Errorf("%s: %s", what, resp.Error)
	}
	return fmt.Errorf("%s failed", what)
}

// withHint appends the configuration hint to API key errors.
func withHint(err error) error {
	if errors.Is(err, analyzer.ErrMissingAPIKey) || errors.Is(err, analyzer.ErrUnauthorized) ||
		strings.Contains(strings.ToLower(err.Error()), "api key") {
		return fmt.Errorf("%w\nhint: set OPENAI_API_KEY or GEMINI_API_KEY, pass --api-key, or set llm.api_key in the config file", err)
	}
	return err
}
