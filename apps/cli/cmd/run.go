package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/storyspec/packages/core/config"
	"github.com/abdul-hamid-achik/storyspec/packages/core/loader"
	"github.com/abdul-hamid-achik/storyspec/packages/core/reporter"
	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
	"github.com/abdul-hamid-achik/storyspec/packages/coverage"
	"github.com/abdul-hamid-achik/storyspec/packages/export/metrics"
	"github.com/abdul-hamid-achik/storyspec/packages/logging"
	"github.com/abdul-hamid-achik/storyspec/packages/notify"
	"github.com/abdul-hamid-achik/storyspec/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run [file|directory]...",
	Short: "Run stories",
	Long: `Run the stories in .story files. Directories are searched recursively.
Without arguments the storyPaths of the configuration file are run.

Examples:
  storyspec run login.story
  storyspec run ./stories --meta-filter "+smoke -skip"
  storyspec run ./stories --threads 4 --timeout 2m
  storyspec run ./stories -o junit --output-file report.xml
  storyspec run ./stories --var baseUrl=http://localhost:8080 --env-file .env
  storyspec run ./stories --watch`,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	configFlag               string
	metaFilterFlag           string
	threadsFlag              int
	timeoutFlag              string
	maxRestartsFlag          int
	dryRunFlag               bool
	ignoreFailureInStoryFlag bool
	ignoreFailureInViewFlag  bool
	skipAfterFailureFlag     bool
	tieBreakFlag             string
	localeFlag               string
	envFileFlag              []string
	varFlag                  []string

	verboseFlag    int // 0=off, 1=-v, 2=-vv
	quietFlag      bool
	noColorFlag    bool
	outputFlag     string
	outputFileFlag string
	outputDirFlag  string
	logLevelFlag   string
	watchFlag      bool

	metricsFileFlag string
	metricsAddrFlag string

	updateSnapshotsFlag bool
	coverageFileFlag    string
	notifyOnFlag        string
	slackWebhookFlag    string
	teamsWebhookFlag    string
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&configFlag, "config", "c", getEnvString("STORYSPEC_CONFIG", ""), "Path to config file (env: STORYSPEC_CONFIG)")
	runCmd.Flags().StringVarP(&metaFilterFlag, "meta-filter", "m", getEnvString("STORYSPEC_META_FILTER", ""), "Run only stories and scenarios whose meta matches, e.g. \"+smoke -skip\" (env: STORYSPEC_META_FILTER)")
	runCmd.Flags().StringArrayVar(&envFileFlag, "env-file", nil, "Load variables from a .env file, may be repeated")
	runCmd.Flags().StringArrayVar(&varFlag, "var", nil, "Set a variable as name=value, may be repeated")

	// Execution flags
	runCmd.Flags().IntVarP(&threadsFlag, "threads", "j", getEnvInt("STORYSPEC_THREADS", config.DefaultThreads), "Number of stories run at once (env: STORYSPEC_THREADS)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("STORYSPEC_TIMEOUT", config.DefaultStoryTimeout.String()), "Timeout of a single story, 0 disables it (env: STORYSPEC_TIMEOUT)")
	runCmd.Flags().IntVar(&maxRestartsFlag, "max-restarts", getEnvInt("STORYSPEC_MAX_RESTARTS", config.DefaultMaxRestarts), "Restarts allowed per scenario and story (env: STORYSPEC_MAX_RESTARTS)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", getEnvBool("STORYSPEC_DRY_RUN", false), "Match every step without performing any (env: STORYSPEC_DRY_RUN)")
	runCmd.Flags().BoolVar(&ignoreFailureInStoryFlag, "ignore-failure-in-story", getEnvBool("STORYSPEC_IGNORE_FAILURE_IN_STORY", false), "Keep performing steps after a failure (env: STORYSPEC_IGNORE_FAILURE_IN_STORY)")
	runCmd.Flags().BoolVar(&ignoreFailureInViewFlag, "ignore-failure-in-view", getEnvBool("STORYSPEC_IGNORE_FAILURE_IN_VIEW", false), "Exit with success even when stories failed (env: STORYSPEC_IGNORE_FAILURE_IN_VIEW)")
	runCmd.Flags().BoolVar(&skipAfterFailureFlag, "skip-after-failure", getEnvBool("STORYSPEC_SKIP_AFTER_FAILURE", false), "Skip the remaining scenarios of a story once one failed (env: STORYSPEC_SKIP_AFTER_FAILURE)")
	runCmd.Flags().StringVar(&tieBreakFlag, "tie-break", getEnvString("STORYSPEC_TIE_BREAK", ""), "How equally ranked candidates are chosen: strict, longest-literal, first-match (env: STORYSPEC_TIE_BREAK)")
	runCmd.Flags().StringVar(&localeFlag, "locale", getEnvString("STORYSPEC_LOCALE", ""), "Locale of numbers in step parameters (env: STORYSPEC_LOCALE)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch story files for changes and re-run")
	runCmd.Flags().BoolVarP(&updateSnapshotsFlag, "update-snapshots", "u", getEnvBool("STORYSPEC_UPDATE_SNAPSHOTS", false), "Record missing or changed snapshots (env: STORYSPEC_UPDATE_SNAPSHOTS)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("STORYSPEC_NOTIFY_ON", ""), "When to notify: always, failure, success, recovery (env: STORYSPEC_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("STORYSPEC_SLACK_WEBHOOK", ""), "Slack webhook URL for run notifications (env: STORYSPEC_SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&teamsWebhookFlag, "teams-webhook", getEnvString("STORYSPEC_TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL for run notifications (env: STORYSPEC_TEAMS_WEBHOOK)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for more detail)")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("STORYSPEC_QUIET", false), "Suppress console output except errors (env: STORYSPEC_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("STORYSPEC_NO_COLOR", false), "Disable colored output (env: STORYSPEC_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("STORYSPEC_OUTPUT", "console"), "Output formats, comma-separated: console, json, junit, tap (env: STORYSPEC_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("STORYSPEC_OUTPUT_FILE", ""), "Write the report to a file (default: stdout) (env: STORYSPEC_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&outputDirFlag, "output-dir", getEnvString("STORYSPEC_OUTPUT_DIR", ""), "Write each report to its own file in a directory (env: STORYSPEC_OUTPUT_DIR)")
	runCmd.Flags().StringVar(&logLevelFlag, "log-level", getEnvString("STORYSPEC_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: STORYSPEC_LOG_LEVEL)")

	// Metrics flags
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("STORYSPEC_METRICS_FILE", ""), "Write run metrics to a file, .json or Prometheus text (env: STORYSPEC_METRICS_FILE)")
	runCmd.Flags().StringVar(&coverageFileFlag, "coverage-file", getEnvString("STORYSPEC_COVERAGE_FILE", ""), "Write a step coverage report, .json or text (env: STORYSPEC_COVERAGE_FILE)")
	runCmd.Flags().StringVar(&metricsAddrFlag, "metrics-addr", getEnvString("STORYSPEC_METRICS_ADDR", ""), "Serve Prometheus metrics on this address while watching, e.g. :9090 (env: STORYSPEC_METRICS_ADDR)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// reportFiles names the file each format writes to in --output-dir.
var reportFiles = map[string]string{
	"json":  "report.json",
	"junit": "junit.xml",
	"tap":   "report.tap",
}

// flagOverrides returns the settings given on the command line or through
// the STORYSPEC_* environment.
func flagOverrides(cmd *cobra.Command) (*config.Config, error) {
	set := func(name, key string) bool {
		return cmd.Flags().Changed(name) || (key != "" && os.Getenv(key) != "")
	}
	o := &config.Config{}

	if set("threads", "STORYSPEC_THREADS") {
		o.Threads = threadsFlag
	}
	if set("timeout", "STORYSPEC_TIMEOUT") {
		o.StoryTimeout = timeoutFlag
	}
	if set("max-restarts", "STORYSPEC_MAX_RESTARTS") {
		o.MaxRestarts = config.IntPtr(maxRestartsFlag)
	}
	if set("meta-filter", "STORYSPEC_META_FILTER") {
		o.MetaFilter = metaFilterFlag
	}
	if set("dry-run", "STORYSPEC_DRY_RUN") {
		o.DryRun = config.BoolPtr(dryRunFlag)
	}
	if set("ignore-failure-in-story", "STORYSPEC_IGNORE_FAILURE_IN_STORY") {
		o.IgnoreFailureInStory = config.BoolPtr(ignoreFailureInStoryFlag)
	}
	if set("ignore-failure-in-view", "STORYSPEC_IGNORE_FAILURE_IN_VIEW") {
		o.IgnoreFailureInView = config.BoolPtr(ignoreFailureInViewFlag)
	}
	if set("skip-after-failure", "STORYSPEC_SKIP_AFTER_FAILURE") {
		o.SkipScenariosAfterFailure = config.BoolPtr(skipAfterFailureFlag)
	}
	if set("no-color", "STORYSPEC_NO_COLOR") {
		o.NoColor = config.BoolPtr(noColorFlag)
	}
	if set("update-snapshots", "STORYSPEC_UPDATE_SNAPSHOTS") {
		o.UpdateSnapshots = config.BoolPtr(updateSnapshotsFlag)
	}
	if notifyOnFlag != "" || slackWebhookFlag != "" || teamsWebhookFlag != "" {
		o.Notify = &config.NotifyConfig{
			On:           notifyOnFlag,
			SlackWebhook: slackWebhookFlag,
			TeamsWebhook: teamsWebhookFlag,
		}
	}
	if verboseFlag > 0 {
		o.Verbose = config.BoolPtr(true)
	}
	o.TieBreak = tieBreakFlag
	o.Locale = localeFlag
	o.OutputDir = outputDirFlag
	o.MetricsFile = metricsFileFlag
	o.CoverageFile = coverageFileFlag
	o.LogLevel = logLevelFlag

	if set("output", "STORYSPEC_OUTPUT") {
		for _, name := range strings.Split(outputFlag, ",") {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				o.Reporters = append(o.Reporters, name)
			}
		}
	}
	o.EnvFiles = append(o.EnvFiles, envFileFlag...)
	if file := os.Getenv("STORYSPEC_ENV_FILE"); file != "" && len(envFileFlag) == 0 {
		o.EnvFiles = []string{file}
	}

	for _, v := range varFlag {
		name, value, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --var %q, expected name=value", v)
		}
		if o.Variables == nil {
			o.Variables = make(map[string]string)
		}
		o.Variables[strings.TrimSpace(name)] = value
	}
	return o, nil
}

// loadRunConfig reads the configuration file and applies the overrides.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, err
	}
	overrides, err := flagOverrides(cmd)
	if err != nil {
		return nil, err
	}
	cfg := fileConfig.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level := cfg.LogLevel
	if level == "" {
		level = logging.VerbosityLevel(verboseFlag)
	}
	return logging.New(logging.Options{
		Level:         level,
		HumanReadable: true,
		Writer:        os.Stderr,
	})
}

// session holds what stays the same across the runs of a watch.
type session struct {
	cfg       *config.Config
	logger    *logging.Logger
	variables map[string]any
	stdout    io.Writer
	stderr    io.Writer
	exporter  *metrics.PrometheusExporter
	notifier  *notify.Manager
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return exitWith(ExitConfigError, err)
	}
	if cfg.Source != "" {
		logger.Info("using config file", "path", cfg.Source)
	}

	variables, err := loadVariables(cfg)
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.StoryPaths
	}
	if len(paths) == 0 {
		return exitWith(ExitUsageError, errors.New("no stories given and no storyPaths configured"))
	}
	files, err := collectFiles(paths)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	if len(files) == 0 {
		return exitWith(ExitUsageError, fmt.Errorf("no %s files found", StoryExtension))
	}

	s := &session{
		cfg:       cfg,
		logger:    logger,
		variables: variables,
		stdout:    cmd.OutOrStdout(),
		stderr:    cmd.ErrOrStderr(),
		exporter:  metrics.NewPrometheusExporter(),
	}
	if s.notifier, err = newNotifier(cfg.Notify); err != nil {
		return exitWith(ExitConfigError, err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := s.run(ctx, files)
	if !watchFlag {
		return exitWith(code, err)
	}
	if err != nil {
		fmt.Fprintf(s.stderr, "Error: %v\n", err)
	}
	return s.watch(ctx, paths)
}

// formatters builds the configured formatters. The console formatter, when
// present, is returned apart since it also receives the run's events.
func (s *session) formatters() ([]output.Formatter, *output.ConsoleReporter, func(), error) {
	var (
		formatters []output.Formatter
		console    *output.ConsoleReporter
		files      []*os.File
	)
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	names := s.cfg.Reporters
	if len(names) == 0 {
		names = []string{"console"}
	}
	for _, name := range names {
		w := s.stdout
		switch {
		case name == "console" && quietFlag:
			continue
		case name != "console" && s.cfg.OutputDir != "":
			if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
				closeAll()
				return nil, nil, nil, err
			}
			f, err := os.Create(filepath.Join(s.cfg.OutputDir, reportFiles[name]))
			if err != nil {
				closeAll()
				return nil, nil, nil, fmt.Errorf("cannot create output file: %w", err)
			}
			files = append(files, f)
			w = f
		case outputFileFlag != "" && (name != "console" || len(names) == 1):
			f, err := os.Create(outputFileFlag)
			if err != nil {
				closeAll()
				return nil, nil, nil, fmt.Errorf("cannot create output file: %w", err)
			}
			files = append(files, f)
			w = f
		}

		f, err := output.NewFormatter(name, w,
			output.WithVerbose(s.cfg.GetVerbose()),
			output.WithNoColor(s.cfg.GetNoColor()),
		)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		if c, ok := f.(*output.ConsoleReporter); ok {
			console = c
		}
		formatters = append(formatters, f)
	}
	return formatters, console, closeAll, nil
}

// run runs the stories once and returns the exit code.
func (s *session) run(ctx context.Context, files []string) (int, error) {
	formatters, console, closeAll, err := s.formatters()
	if err != nil {
		return ExitConfigError, err
	}
	defer closeAll()

	lib, b, err := buildLibrary(s.cfg, s.variables, s.logger)
	if err != nil {
		return ExitConfigError, err
	}
	defer b.Close()

	opts := []runner.Option{
		runner.WithLoader(loader.FileLoader{}),
		runner.WithLogger(s.logger),
	}
	if console != nil {
		if s.cfg.GetVerbose() {
			console.FormatHeader(version)
		}
		opts = append(opts, runner.WithReporter(console))
	} else {
		opts = append(opts, runner.WithReporter(reporter.NullReporter{}))
	}

	embedder, err := runner.NewEmbedder(lib, runner.FromFile(s.cfg), opts...)
	if err != nil {
		return ExitConfigError, err
	}

	result, runErr := embedder.RunStoriesAsPaths(ctx, files)
	var planErr *runner.PlanError
	if errors.As(runErr, &planErr) {
		return ExitParseError, runErr
	}
	if result == nil {
		return ExitTestFailure, runErr
	}

	for _, f := range formatters {
		f.FormatResult(result)
		if err := f.Flush(); err != nil {
			return ExitTestFailure, fmt.Errorf("error writing output: %w", err)
		}
	}
	if console != nil && s.cfg.GetVerbose() {
		s.printStatistics(metrics.Collect(result, metrics.DefaultSlowest))
	}

	s.exporter.Record(result)
	if err := s.exportMetrics(result); err != nil {
		fmt.Fprintf(s.stderr, "warning: failed to export metrics: %v\n", err)
	}
	if err := s.writeCoverage(lib, result); err != nil {
		fmt.Fprintf(s.stderr, "warning: failed to write step coverage: %v\n", err)
	}
	if s.notifier != nil {
		suite := ""
		if s.cfg.Notify != nil {
			suite = s.cfg.Notify.Suite
		}
		if err := s.notifier.Notify(ctx, notify.Summarize(result, suite)); err != nil {
			fmt.Fprintf(s.stderr, "warning: failed to send notification: %v\n", err)
		}
	}

	if errors.Is(runErr, runner.ErrStoriesFailed) {
		return ExitTestFailure, nil
	}
	if runErr != nil {
		return ExitTestFailure, runErr
	}
	return ExitSuccess, nil
}

func (s *session) exportMetrics(result *runner.RunResult) error {
	path := s.cfg.MetricsFile
	if path == "" {
		return nil
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return metrics.NewJSONExporter(
			metrics.WithJSONFile(path),
			metrics.WithJSONVersion(version),
		).Export(metrics.Collect(result, metrics.DefaultSlowest))
	}
	return s.exporter.WriteFile(path)
}

// newNotifier returns nil when no webhook is configured.
func newNotifier(cfg *config.NotifyConfig) (*notify.Manager, error) {
	if cfg.IsEmpty() {
		return nil, nil
	}
	on, err := notify.ParseNotifyOn(cfg.On)
	if err != nil {
		return nil, err
	}
	m := notify.NewManager(on)
	if cfg.SlackWebhook != "" {
		m.AddNotifier(notify.NewSlackNotifier(cfg.SlackWebhook, notify.WithSlackChannel(cfg.SlackChannel)))
	}
	if cfg.TeamsWebhook != "" {
		m.AddNotifier(notify.NewTeamsNotifier(cfg.TeamsWebhook))
	}
	return m, nil
}

func (s *session) writeCoverage(lib *steps.Library, result *runner.RunResult) error {
	path := s.cfg.CoverageFile
	if path == "" {
		return nil
	}
	report := coverage.NewAnalyzer(lib).Analyze(result)
	content := report.FormatConsole()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var err error
		if content, err = report.FormatJSON(); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func (s *session) printStatistics(summary *metrics.Summary) {
	d := summary.StepDurations
	if d.Count == 0 {
		return
	}
	fmt.Fprintf(s.stdout, "Step time: p50 %s, p95 %s, p99 %s, max %s\n", d.P50, d.P95, d.P99, d.Max)
	for _, t := range summary.Slowest {
		fmt.Fprintf(s.stdout, "  %8s  %s (%s)\n", t.Duration.Round(time.Microsecond), t.Step, t.Story)
	}
}

// watch re-runs the stories whenever a story file below paths changes.
func (s *session) watch(ctx context.Context, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if metricsAddrFlag != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.exporter.Handler())
		server := &http.Server{Addr: metricsAddrFlag, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error(err, "metrics server stopped")
			}
		}()
		defer server.Close()
		fmt.Fprintf(s.stdout, "Prometheus metrics available at http://%s/metrics\n", metricsAddrFlag)
	}

	watched := make(map[string]bool)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			p = filepath.Dir(p)
		}
		_ = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && !watched[path] {
				if err := watcher.Add(path); err != nil {
					s.logger.Warn("cannot watch directory", "path", path, "error", err.Error())
				}
				watched[path] = true
			}
			return nil
		})
	}

	fmt.Fprintf(s.stdout, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	rerun := make(chan string, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isStoryFile(event.Name) || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- name:
				default:
				}
			})

		case name := <-rerun:
			fmt.Fprintf(s.stdout, "\n\nFile changed: %s\nRe-running stories...\n\n", name)
			files, err := collectFiles(paths)
			if err != nil {
				fmt.Fprintf(s.stderr, "Error: %v\n", err)
				continue
			}
			if _, err := s.run(ctx, files); err != nil {
				fmt.Fprintf(s.stderr, "Error: %v\n", err)
			}
			fmt.Fprintf(s.stdout, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error(err, "watcher error")
		}
	}
}
