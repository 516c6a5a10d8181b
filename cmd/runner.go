package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger     *log.Logger
	httpClient *http.Client
	output     io.Writer
	lookupEnv  func(string) (string, bool)
	dotenv     []string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger     *log.Logger
	HTTPClient *http.Client
	Output     io.Writer
	LookupEnv  func(string) (string, bool) // defaults to [os.LookupEnv]
	DotEnv     []string                    // dotenv files loaded before the config, defaults to .env and .env.local
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.DotEnv == nil {
		opts.DotEnv = []string{".env", ".env.local"}
	}

	return &Runner{
		logger:     opts.Logger,
		httpClient: opts.HTTPClient,
		output:     opts.Output,
		lookupEnv:  opts.LookupEnv,
		dotenv:     opts.DotEnv,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){serveCommand, setupCommand, healthCommand} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the dotenv files, then the config file at path when it exists (defaults
// otherwise), and finally applies environment overrides.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if err := shared.LoadDotEnv(r.dotenv...); err != nil {
		return nil, err
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	if err := config.ApplyEnv(r.lookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
