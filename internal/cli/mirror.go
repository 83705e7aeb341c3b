package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/klibmirror/klibmirror/pkg/config"
	"github.com/klibmirror/klibmirror/pkg/httputil"
	"github.com/klibmirror/klibmirror/pkg/maven"
	"github.com/klibmirror/klibmirror/pkg/mirror"
)

// mirrorOpts holds the command-line flags shared by the mirror and graph
// commands. Flags override the corresponding config file settings only
// when explicitly set.
type mirrorOpts struct {
	configPath    string        // config file path
	cacheDir      string        // artifact cache directory
	policy        string        // variant policy name
	workers       int           // worker pool size
	timeout       time.Duration // per-request HTTP timeout
	retries       int           // extra attempts for transient failures
	refresh       bool          // bypass the descriptor response cache
	cancelOnError bool          // cancel in-flight work on first failure
}

func (o *mirrorOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.configPath, "config", "c", config.DefaultPath, "config file")
	cmd.Flags().StringVar(&o.cacheDir, "cache-dir", "", "artifact cache directory (overrides config)")
	cmd.Flags().StringVar(&o.policy, "policy", "", "variant policy: standard or wasm (overrides config)")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "worker pool size (overrides config)")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "per-request HTTP timeout, 0 for none (overrides config)")
	cmd.Flags().IntVar(&o.retries, "retries", 0, "retry attempts for transient failures (overrides config)")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "bypass the descriptor response cache")
	cmd.Flags().BoolVar(&o.cancelOnError, "cancel-on-error", false, "cancel in-flight downloads when a task fails")
}

// load resolves the effective config: the file (written with defaults if
// absent), overridden by any explicitly set flags.
func (o *mirrorOpts) load(cmd *cobra.Command) (config.Config, error) {
	logger := loggerFromContext(cmd.Context())

	cfg, created, err := config.LoadOrInit(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if created {
		logger.Infof("Wrote default config to %s", o.configPath)
	}

	flags := cmd.Flags()
	if flags.Changed("cache-dir") {
		cfg.CacheDir = o.cacheDir
	}
	if flags.Changed("policy") {
		cfg.Policy = o.policy
	}
	if flags.Changed("workers") {
		cfg.Mirror.Workers = o.workers
	}
	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = config.Duration(o.timeout)
	}
	if flags.Changed("retries") {
		cfg.HTTP.Retries = o.retries
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newResolver wires a Maven client and resolution engine from the
// effective config. The descriptor response cache lives in the shared
// default cache directory, managed by the cache subcommand.
func newResolver(cfg config.Config) (*mirror.Resolver, error) {
	descriptors, err := httputil.NewCache("", time.Duration(cfg.HTTP.DescriptorTTL))
	if err != nil {
		return nil, fmt.Errorf("descriptor cache: %w", err)
	}
	client := maven.NewClient(maven.ClientOptions{
		Repository:  cfg.HTTP.Repository,
		Timeout:     time.Duration(cfg.HTTP.Timeout),
		Retries:     cfg.HTTP.Retries,
		Descriptors: descriptors.Namespace("pom:"),
	})
	return mirror.NewResolver(client, cfg.CacheDir), nil
}

// resolveOptions converts the effective config into engine options, with
// per-artifact progress routed to the logger.
func resolveOptions(ctx context.Context, cfg config.Config, o *mirrorOpts) (mirror.Options, error) {
	policy := maven.PolicyStandard
	if cfg.Policy != "" {
		var err error
		policy, err = maven.ParsePolicy(cfg.Policy)
		if err != nil {
			return mirror.Options{}, err
		}
	}
	logger := loggerFromContext(ctx)
	return mirror.Options{
		Policy:        policy,
		Workers:       cfg.Mirror.Workers,
		Refresh:       o.refresh,
		CancelOnError: o.cancelOnError,
		Logf:          func(msg string, args ...any) { logger.Debugf(msg, args...) },
	}, nil
}

// coordinates returns the run's starting coordinates: command arguments if
// given, otherwise the config file's klib list.
func coordinates(args []string, cfg config.Config) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Klibs
}

// newMirrorCmd creates the mirror command, the core operation of the tool.
func newMirrorCmd() *cobra.Command {
	opts := &mirrorOpts{}
	var noCache bool

	cmd := &cobra.Command{
		Use:   "mirror [coordinate...]",
		Short: "Mirror a klib dependency closure into the cache directory",
		Long: `Mirror resolves the full transitive dependency closure of the given
coordinates and downloads every policy-selected artifact into the cache
directory. Coordinates take the form group:artifact:version[:extension],
with the extension defaulting to "klib". When no coordinates are given,
the klib list from the config file is used.

Examples:
  klibmirror mirror org.jetbrains.kotlin:kotlin-dom-api-compat:2.3.0
  klibmirror mirror --policy wasm org.example:lib-wasm-js:1.0
  klibmirror mirror                       # coordinates from klibmirror.toml
  klibmirror mirror --no-cache            # start from an empty cache`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(cmd, opts, noCache, args)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "delete the cache directory before mirroring")

	return cmd
}

func runMirror(cmd *cobra.Command, opts *mirrorOpts, noCache bool, args []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}

	if noCache {
		logger.Debugf("Clearing cache directory %s", cfg.CacheDir)
		if err := os.RemoveAll(cfg.CacheDir); err != nil {
			return fmt.Errorf("clear cache dir: %w", err)
		}
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	coords := coordinates(args, cfg)
	if len(coords) == 0 {
		return fmt.Errorf("no coordinates given (pass them as arguments or list them under klibs in %s)", opts.configPath)
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	resolveOpts, err := resolveOptions(ctx, cfg, opts)
	if err != nil {
		return err
	}

	logger.Infof("Mirroring %d coordinates (%s policy) into %s", len(coords), resolveOpts.Policy, cfg.CacheDir)

	prog := newProgress(logger)
	report, err := resolver.Resolve(ctx, coords, resolveOpts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Mirrored %d artifacts with %d dependency edges", len(report.Artifacts), len(report.Edges)))

	printSuccess("Cache is complete: %d artifacts", len(report.Artifacts))
	printDetail("Directory: %s", cfg.CacheDir)
	return nil
}
