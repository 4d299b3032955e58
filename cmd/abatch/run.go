package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/metalagman/abatch"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var exitFn = os.Exit

const spawnReadyTimeout = 30 * time.Second

type runOptions struct {
	server           string
	apiKey           string
	promptFile       string
	promptDir        string
	timeout          time.Duration
	stopOnToolError  bool
	stopOnSDKError   bool
	verbose          bool
	resultSchemaFile string
	configFile       string
	spawn            string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [prompt ...]",
		Short: "Run prompts sequentially, one fresh session per prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			// runBatch must fully return before the process exits so its
			// deferred cleanup (spawned server shutdown) gets to run.
			code, err := runBatch(cmd, args, opts)
			if err != nil {
				return err
			}

			if code != 0 {
				exitFn(code)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", abatch.DefaultServerURL, "agent server base URL")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "bearer credential for the server")
	cmd.Flags().StringVar(&opts.promptFile, "prompt-file", "", "read a single prompt from a file")
	cmd.Flags().StringVar(&opts.promptDir, "prompt-dir", "", "read prompts from a directory, in natural sort order")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-prompt timeout (0 disables)")
	cmd.Flags().BoolVar(&opts.stopOnToolError, "stop-on-tool-error", false, "stop the batch at the first tool error")
	cmd.Flags().BoolVar(&opts.stopOnSDKError, "stop-on-sdk-error", true, "stop the batch at the first SDK error")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable diagnostic logging")
	cmd.Flags().StringVar(&opts.resultSchemaFile, "result-schema-file", "", "JSON schema to validate successful results against")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "YAML config file")
	cmd.Flags().StringVar(&opts.spawn, "spawn", "", "command to spawn a local agent server before the batch")

	cmd.MarkFlagsMutuallyExclusive("prompt-file", "prompt-dir")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string, opts *runOptions) (int, error) {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return 0, err
	}

	logger := zerolog.Nop()
	if cfg.Verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
			With().Timestamp().Logger()
	}

	prompts, err := loadPrompts(args, opts)
	if err != nil {
		return 0, err
	}

	if len(prompts) == 0 {
		return 0, abatch.ErrNoPrompts
	}

	schema, err := loadSchema(cfg.ResultSchemaFile)
	if err != nil {
		return 0, err
	}

	if cfg.Spawn != "" {
		proc, err := abatch.SpawnServer(cmd.Context(), cfg.Spawn, cfg.Server, spawnReadyTimeout, spawnOutput(cmd, cfg), logger)
		if err != nil {
			return 0, fmt.Errorf("spawn server: %w", err)
		}

		defer func() { _ = proc.Stop() }()
	}

	client, err := abatch.NewHTTPClient(cfg.Server, cfg.APIKey)
	if err != nil {
		// Client construction failed before any prompt ran; the whole batch
		// counts as SDK errors.
		fmt.Fprintf(cmd.OutOrStdout(), "[SDK ERROR] %v\n", err)
		summary := abatch.RunSummary{SDKErrors: len(prompts)}
		fmt.Fprintln(cmd.OutOrStdout(), summary.String())

		return summary.ExitCode(), nil
	}

	runner, err := abatch.NewRunner(client, cfg.Policy(),
		abatch.WithOutput(cmd.OutOrStdout()),
		abatch.WithLogger(logger),
		abatch.WithVerbose(cfg.Verbose),
		abatch.WithResultSchema(schema),
		abatch.WithPromptTimeout(time.Duration(cfg.Timeout)),
	)
	if err != nil {
		return 0, err
	}

	summary := runner.Run(cmd.Context(), prompts)
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())

	return summary.ExitCode(), nil
}

// resolveConfig merges the optional config file with flags; flags that were
// set explicitly win.
func resolveConfig(cmd *cobra.Command, opts *runOptions) (abatch.Config, error) {
	cfg := abatch.DefaultConfig()

	if opts.configFile != "" {
		loaded, err := abatch.LoadConfig(opts.configFile)
		if err != nil {
			return abatch.Config{}, err
		}

		cfg = loaded
	}

	flags := cmd.Flags()

	if flags.Changed("server") {
		cfg.Server = opts.server
	}

	if flags.Changed("api-key") {
		cfg.APIKey = opts.apiKey
	}

	if flags.Changed("timeout") {
		cfg.Timeout = abatch.Duration(opts.timeout)
	}

	if flags.Changed("stop-on-tool-error") {
		cfg.StopOnToolError = opts.stopOnToolError
	}

	if flags.Changed("stop-on-sdk-error") {
		v := opts.stopOnSDKError
		cfg.StopOnSDKError = &v
	}

	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}

	if flags.Changed("result-schema-file") {
		cfg.ResultSchemaFile = opts.resultSchemaFile
	}

	if flags.Changed("spawn") {
		cfg.Spawn = opts.spawn
	}

	return cfg, nil
}

func loadPrompts(args []string, opts *runOptions) ([]abatch.PromptEntry, error) {
	sources := 0
	if len(args) > 0 {
		sources++
	}

	if opts.promptFile != "" {
		sources++
	}

	if opts.promptDir != "" {
		sources++
	}

	if sources > 1 {
		return nil, fmt.Errorf("%w: use arguments, --prompt-file or --prompt-dir", abatch.ErrPromptSourceConflict)
	}

	switch {
	case opts.promptFile != "":
		return abatch.PromptsFromFile(opts.promptFile)
	case opts.promptDir != "":
		return abatch.PromptsFromDir(opts.promptDir)
	default:
		return abatch.PromptsFromArgs(args), nil
	}
}

func loadSchema(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read result schema file: %w", err)
	}

	return string(data), nil
}

// spawnOutput forwards the spawned server's output to stderr in verbose mode
// so it cannot interleave with per-prompt results on stdout.
func spawnOutput(cmd *cobra.Command, cfg abatch.Config) io.Writer {
	if !cfg.Verbose {
		return nil
	}

	return cmd.ErrOrStderr()
}
