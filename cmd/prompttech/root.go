package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teilomillet/prompttech/config"
	"github.com/teilomillet/prompttech/llm"
	"github.com/teilomillet/prompttech/prompts"
	"github.com/teilomillet/prompttech/report"
	"github.com/teilomillet/prompttech/technique"
	"github.com/teilomillet/prompttech/utils"
)

type rootFlags struct {
	envFile     string
	outputDir   string
	haltOnError bool
	markdown    bool
}

// run executes the CLI and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "prompttech",
		Short: "Prompt engineering technique demonstrations",
		Long: `prompttech sends the built-in examples of one prompting technique to a hosted
model, prints each input and output, and saves the results to
<technique>_results_<YYYYMMDD_HHMMSS>.json.

The provider, model and credentials come from the environment (a .env file in
the working directory is loaded first). GROQ_API_KEY is used by default.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&flags.outputDir, "output-dir", "", "directory the report is written to (overrides PROMPTTECH_OUTPUT_DIR)")
	pf.BoolVar(&flags.haltOnError, "halt-on-error", false, "stop a chaining workflow at its first failed step")
	pf.BoolVar(&flags.markdown, "markdown", false, "render model output as terminal markdown")

	techniques := []struct {
		use, slug, short string
	}{
		{"zero-shot", prompts.ZeroShot, "Run the zero-shot prompting examples"},
		{"few-shot", prompts.FewShot, "Run the few-shot prompting examples"},
		{"chain-of-thought", prompts.ChainOfThought, "Run the chain of thought examples"},
		{"chaining", prompts.PromptChaining, "Run the prompt chaining workflows"},
	}
	for _, tc := range techniques {
		slug := tc.slug
		root.AddCommand(&cobra.Command{
			Use:   tc.use,
			Short: tc.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runTechnique(cmd, flags, func() (technique.Technique, error) {
					return technique.Load(slug)
				})
			},
		})
	}

	root.AddCommand(newRunCmd(flags), newSchemaCmd(), newPromptCmd(flags))
	return root
}

// loadDotEnv loads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	if err := loadDotEnv(flags.envFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", flags.envFile, err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	var opts []config.ConfigOption
	if flags.outputDir != "" {
		opts = append(opts, config.SetOutputDir(flags.outputDir))
	}
	if cmd.Flags().Changed("halt-on-error") {
		opts = append(opts, config.SetHaltOnError(flags.haltOnError))
	}
	if cmd.Flags().Changed("markdown") {
		opts = append(opts, config.SetRenderMarkdown(flags.markdown))
	}
	config.ApplyOptions(cfg, opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *utils.DefaultLogger {
	return utils.NewLoggerWithWriter(cfg.LogLevel, w).With("run_id", uuid.NewString())
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <catalog.yaml>",
		Short: "Run every example of a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTechnique(cmd, flags, func() (technique.Technique, error) {
				c, err := prompts.LoadFile(args[0])
				if err != nil {
					return nil, err
				}
				return technique.FromCatalog(c)
			})
		},
	}
}

func runTechnique(cmd *cobra.Command, flags *rootFlags, load func() (technique.Technique, error)) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()

	tech, err := load()
	if err != nil {
		return err
	}
	client, err := llm.NewClient(cfg, logger, nil)
	if err != nil {
		return err
	}

	var consoleOpts []technique.ConsoleOption
	if cfg.RenderMarkdown {
		consoleOpts = append(consoleOpts, technique.WithMarkdown(100))
	}
	sink := technique.MultiSink{
		technique.NewConsoleSink(cmd.OutOrStdout(), consoleOpts...),
		technique.NewLogSink(logger),
	}

	session := technique.NewSession(client, report.NewPersister(cfg.OutputDir, logger), sink, logger)
	session.HaltOnError = cfg.HaltOnError

	_, err = session.Run(cmd.Context(), tech)
	var oerr *technique.OrchestrationError
	if errors.As(err, &oerr) {
		// Already reported by the console sink; the run simply has no file.
		return nil
	}
	return err
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [tasks|workflows]",
		Short:     "Print the JSON Schema of a report file",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(report.KindTasks), string(report.KindWorkflows)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := report.KindTasks
			if len(args) == 1 {
				kind = report.Kind(args[0])
			}
			s, err := report.Schema(kind)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
}

func newPromptCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <text>",
		Short: "Send one prompt with the configured temperature and max tokens",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())
			defer func() { _ = logger.Sync() }()

			client, err := llm.NewClient(cfg, logger, nil)
			if err != nil {
				return err
			}
			res := client.Generate(cmd.Context(), client.NewRequest(strings.Join(args, " ")))
			if res.Failed() {
				return res.Err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}
}
