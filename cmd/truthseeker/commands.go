package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/agenthands/truthseeker/internal/app"
	"github.com/agenthands/truthseeker/internal/config"
	"github.com/agenthands/truthseeker/internal/core/agent"
	"github.com/agenthands/truthseeker/internal/core/factcheck"
	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/agenthands/truthseeker/internal/logging"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const testStatement = "The Earth is approximately 4.5 billion years old."

type checker interface {
	Check(ctx context.Context, statement string, progress *factcheck.Progress) model.AnalysisResult
}

type checkFlags struct {
	json        bool
	test        bool
	file        string
	concurrency int
	configPath  string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "truthseeker",
		Short:         "AI-powered fact checker backed by web search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCmd())
	return root
}

func newCheckCmd() *cobra.Command {
	var flags checkFlags

	cmd := &cobra.Command{
		Use:   "check [statement]",
		Short: "Fact-check a statement",
		Example: `  truthseeker check "The capital of France is Paris"
  truthseeker check --test
  truthseeker check --json "Python was created in 1991"
  truthseeker check --file claims.txt --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			statements, err := collectStatements(flags, args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := buildApp(ctx, flags.configPath)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			if flags.concurrency <= 0 {
				flags.concurrency = a.Config.Concurrency.Batch
			}
			return runCheck(ctx, a.Service, statements, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&flags.json, "json", false, "output results as JSON")
	cmd.Flags().BoolVar(&flags.test, "test", false, "run a fact-check on a canned statement")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "fact-check every line of a file ('-' for stdin)")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "c", 0, "parallel checks in batch mode (default from config)")
	cmd.Flags().StringVar(&flags.configPath, "config", "config/config.toml", "path to a TOML config file")
	return cmd
}

func collectStatements(flags checkFlags, args []string, stdin io.Reader) ([]string, error) {
	switch {
	case flags.test:
		return []string{testStatement}, nil
	case flags.file != "":
		r := stdin
		if flags.file != "-" {
			f, err := os.Open(flags.file)
			if err != nil {
				return nil, fmt.Errorf("failed to open statements file: %w", err)
			}
			defer f.Close()
			r = f
		}
		statements, err := readStatements(r)
		if err != nil {
			return nil, err
		}
		if len(statements) == 0 {
			return nil, errors.New("no statements found in file")
		}
		return statements, nil
	default:
		statement := strings.TrimSpace(strings.Join(args, " "))
		if statement == "" {
			return nil, errors.New("a statement is required (or use --test / --file)")
		}
		return []string{statement}, nil
	}
}

func buildApp(ctx context.Context, configPath string) (*app.App, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, err
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.Log.Format = "text"
	}

	return app.New(ctx, cfg, logging.New(cfg.Log, os.Stderr))
}

func runCheck(ctx context.Context, c checker, statements []string, flags checkFlags, stdout, stderr io.Writer) error {
	if len(statements) > 1 {
		results, err := checkAll(ctx, c, statements, flags.concurrency)
		if err != nil {
			return err
		}
		if flags.json {
			return writeJSON(stdout, results)
		}
		for i, r := range results {
			renderResult(stdout, statements[i], r)
		}
		return nil
	}

	statement := statements[0]
	if flags.json {
		return writeJSON(stdout, c.Check(ctx, statement, nil))
	}

	renderHeader(stdout, statement)
	result := c.Check(ctx, statement, statusProgress(stderr))
	clearStatus(stderr)
	renderResult(stdout, "", result)
	return nil
}

// statusProgress shows a single updating status line when stderr is a terminal.
func statusProgress(w io.Writer) *factcheck.Progress {
	if !isTerminal(w) {
		return nil
	}
	return newStatusProgress(w)
}

func newStatusProgress(w io.Writer) *factcheck.Progress {
	style := statusStyle(w)
	labels := map[string]string{
		agent.StatusAnalyzing: "Analyzing statement...",
		agent.StatusSearching: "Searching the web for evidence...",
	}
	return &factcheck.Progress{
		OnStatus: func(status string) {
			if l, ok := labels[status]; ok {
				status = l
			}
			fmt.Fprint(w, "\r\033[K"+style.Render(status))
		},
	}
}

func clearStatus(w io.Writer) {
	if isTerminal(w) {
		fmt.Fprint(w, "\r\033[K")
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
