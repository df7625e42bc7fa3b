package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/iancoleman/strcase"
	"github.com/mcncl/gotoon/internal/config"
	"github.com/mcncl/gotoon/internal/converter"
	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/formatter"
	"github.com/mcncl/gotoon/internal/history"
	"github.com/mcncl/gotoon/internal/models"
	"github.com/mcncl/gotoon/internal/server"
	"github.com/mcncl/gotoon/internal/session"
)

// CLI defines the command-line interface
var CLI struct {
	Input       string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output      string `help:"Path to output TOON file. If not specified, writes to stdout." short:"o" type:"path"`
	Stats       bool   `help:"Print token statistics to stderr after converting." short:"s"`
	Title       string `help:"Title stored with the conversion when saving." short:"t"`
	Save        bool   `help:"Save the conversion to the history database."`
	Serve       bool   `help:"Run the HTTP conversion service instead of converting once."`
	Addr        string `help:"Listen address for the HTTP service." default:":8000"`
	Config      string `help:"Path to config file. If not specified, searches upwards for .gotoon.yml." short:"c" type:"path"`
	Debug       bool   `help:"Enable debug logging." short:"d"`
	Version     bool   `help:"Show version information." short:"v"`
	Interactive bool   `help:"Run in interactive mode, allowing direct JSON input with Ctrl+D to process." short:"I"`
}

// Context holds the runtime context
type Context struct {
	Debug bool
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	// Parse CLI arguments with Kong
	cliParser := kong.Must(&CLI,
		kong.Name("gotoon"),
		kong.Description("A tool to convert JSON to TOON (Token-Optimized Object Notation)"),
		kong.UsageOnError(),
	)

	// Check if no arguments provided and set interactive mode by default
	if len(os.Args) == 1 {
		CLI.Interactive = true
	}

	// Parse the command line arguments
	if _, err := cliParser.Parse(os.Args[1:]); err != nil {
		// If there's an error parsing arguments, the usage will already be shown by kong.UsageOnError()
		os.Exit(1)
	}

	// Show version and exit if requested
	if CLI.Version {
		fmt.Printf("gotoon version %s\n", Version)
		return
	}

	var err error
	if CLI.Serve {
		err = serve()
	} else {
		err = run(&Context{Debug: CLI.Debug})
	}
	if err != nil {
		// Use our custom error handling to provide user-friendly error messages
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))

		// Show help on error
		fmt.Fprintf(os.Stderr, "\nFor help, run: gotoon --help\n")

		os.Exit(1)
	}
}

// run executes a single conversion
func run(ctx *Context) error {
	// 1. Read JSON input
	jsonText, err := readInput()
	if err != nil {
		// Error is already wrapped by readInput
		return err
	}

	// 2. Convert to TOON
	result, err := converter.Convert(jsonText)
	if err != nil {
		return err
	}

	// 3. Output the result
	if err := writeOutput(result.ToonOutput); err != nil {
		return err
	}

	// 4. Report token statistics if requested
	if CLI.Stats {
		formatterInst := formatter.NewFormatter()
		fmt.Fprint(os.Stderr, formatterInst.FormatStats(result.Metrics))
	}

	// 5. Persist to history if requested
	if CLI.Save {
		return saveConversion(jsonText, result)
	}
	return nil
}

// serve runs the HTTP conversion service until interrupted
func serve() error {
	configPath := CLI.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfigWithCLI(configPath, CLI.Addr, "", CLI.Debug)
	if err != nil {
		return errors.NewConfigError("failed to load configuration", err)
	}

	logger := newLogger(cfg.Dev.Debug)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := session.NewStore(session.Config{
		MaxEntries: cfg.Sessions.MaxEntries,
		Recent:     cfg.Sessions.RecentEntries,
		TTL:        cfg.SessionTTL(),
		Logger:     logger,
	})
	if err := sessions.StartSweeping(ctx, cfg.Sessions.SweepSchedule); err != nil {
		return errors.NewConfigError("invalid sessions.sweep_schedule", err)
	}
	defer sessions.StopSweeping()

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close history store", "error", err)
			}
		}()
		logger.Info("history store open", "path", cfg.History.Path)
	}

	api := server.New(server.Config{
		Sessions:     sessions,
		History:      store,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Version:      Version,
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return errors.NewServerError("http server failed", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.NewServerError("graceful shutdown failed", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// readInput reads JSON from file or stdin
func readInput() (string, error) {
	if CLI.Input != "" {
		return readFileInput(CLI.Input)
	}

	// Check if stdin has data
	stdinInfo, err := os.Stdin.Stat()
	if err != nil {
		return "", errors.NewInputError("failed to access stdin", err)
	}

	// Interactive mode or piped input
	if (stdinInfo.Mode() & os.ModeCharDevice) != 0 {
		// Terminal is interactive (not piped)
		if CLI.Interactive {
			// Interactive mode
			return readInteractiveInput()
		}
		// No data provided on stdin and not in interactive mode
		return "", errors.NewInputError("no input provided", errors.ErrNoInput)
	}

	// Read from stdin (piped input)
	jsonData, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", errors.NewInputError("failed to read from stdin", err)
	}

	if len(jsonData) == 0 {
		return "", errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}

	return string(jsonData), nil
}

// readFileInput reads the raw JSON text of a file. The conversion needs the
// source text, not just the parsed tree, so the token comparison can run
// against what the user actually supplied.
func readFileInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewInputError(
				fmt.Sprintf("file '%s' not found", path),
				errors.ErrFileNotFound,
			)
		}
		return "", errors.NewInputError(
			fmt.Sprintf("failed to read file '%s'", path),
			err,
		)
	}
	if len(data) == 0 {
		return "", errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", path),
			errors.ErrFileEmpty,
		)
	}
	return string(data), nil
}

// writeOutput writes TOON text to file or stdout
func writeOutput(toon string) error {
	if CLI.Output != "" {
		// Write to file
		err := os.WriteFile(CLI.Output, []byte(toon), 0644)
		if err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", CLI.Output), err)
		}
		fmt.Fprintf(os.Stderr, "TOON output written to %s\n", CLI.Output)
		return nil
	}

	// Write to stdout
	_, err := fmt.Println(strings.TrimSpace(toon))
	if err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// saveConversion persists a finished conversion to the history database
func saveConversion(jsonText string, result models.ConversionResult) error {
	configPath := CLI.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfigWithCLI(configPath, CLI.Addr, "", CLI.Debug)
	if err != nil {
		return errors.NewConfigError("failed to load configuration", err)
	}
	if !cfg.History.Enabled {
		return errors.NewConfigError("history is disabled in configuration", nil)
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing history store: %v\n", err)
		}
	}()

	record := models.ConversionRecord{
		Title:            saveTitle(),
		JSONInput:        jsonText,
		ToonOutput:       result.ToonOutput,
		JSONTokens:       result.Metrics.JSONTokens,
		ToonTokens:       result.Metrics.ToonTokens,
		TokensSaved:      result.Metrics.TokensSaved,
		ReductionPercent: result.Metrics.ReductionPercent,
	}
	saved, err := store.Save(context.Background(), record)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Conversion saved as %q (id %s)\n", saved.Title, saved.ID)
	return nil
}

// saveTitle picks the title for a saved conversion: the --title flag, a
// humanized input filename, or the default.
func saveTitle() string {
	if CLI.Title != "" {
		return CLI.Title
	}
	if CLI.Input != "" {
		base := strings.TrimSuffix(filepath.Base(CLI.Input), filepath.Ext(CLI.Input))
		if title := strcase.ToDelimited(base, ' '); title != "" {
			return title
		}
	}
	return models.DefaultTitle
}

// readInteractiveInput provides an interactive mode for users to paste JSON
// and signal completion with Ctrl+D (EOF)
func readInteractiveInput() (string, error) {
	fmt.Fprintln(os.Stderr, "GoToon Interactive Mode")
	fmt.Fprintln(os.Stderr, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	// Read all input until EOF (Ctrl+D)
	reader := bufio.NewReader(os.Stdin)
	var jsonBuilder strings.Builder

	for {
		line, err := reader.ReadString('\n')
		jsonBuilder.WriteString(line)
		if err == io.EOF {
			// End of input
			break
		}
		if err != nil {
			return "", errors.NewInputError("error reading input", err)
		}
	}

	jsonData := jsonBuilder.String()
	if len(jsonData) == 0 {
		return "", errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(os.Stderr, "\nProcessing JSON...")
	return jsonData, nil
}
