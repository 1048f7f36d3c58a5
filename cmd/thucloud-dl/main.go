package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/handiism/thucloud-downloader/internal/config"
	"github.com/handiism/thucloud-downloader/internal/download"
	cloudhttp "github.com/handiism/thucloud-downloader/internal/http"
	"github.com/handiism/thucloud-downloader/internal/model"
	"github.com/handiism/thucloud-downloader/internal/thucloud"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitDiscovery   = 3
	exitTransfers   = 4
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	switch args[0] {
	case "download":
		return runDownload(ctx, args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Tsinghua Cloud Downloader - Download shared folders from cloud.tsinghua.edu.cn")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  thucloud-dl download <share URL> [options]")
	fmt.Fprintln(w, "  thucloud-dl help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "For interactive mode, use: thucloud-tui")
	fmt.Fprintln(w)
	fs, _ := newDownloadFlags(w)
	fs.PrintDefaults()
}

type downloadFlags struct {
	excludeExts string
	maxWorkers  int
	output      string
	config      string
	verbose     bool
	dryRun      bool
	jobTimeout  time.Duration
}

func newDownloadFlags(output io.Writer) (*flag.FlagSet, *downloadFlags) {
	f := &downloadFlags{}
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&f.excludeExts, "exclude-exts", "", "Comma-separated file extensions to skip, e.g. \"mp4,mkv\"")
	fs.IntVar(&f.maxWorkers, "max-workers", 0, "Maximum concurrent downloads (default 5)")
	fs.StringVar(&f.output, "output", "", "Output directory (overrides config)")
	fs.StringVar(&f.config, "config", "", "Path to config file (.json, .yaml)")
	fs.BoolVar(&f.verbose, "verbose", false, "Show verbose output")
	fs.BoolVar(&f.dryRun, "dry-run", false, "List files without downloading")
	fs.DurationVar(&f.jobTimeout, "job-timeout", 0, "Abort a single file transfer after this long (0 disables)")

	return fs, f
}

// parseDownloadArgs accepts flags before and after the positional URL.
func parseDownloadArgs(args []string, output io.Writer) (string, *downloadFlags, error) {
	fs, flags := newDownloadFlags(output)
	if err := fs.Parse(args); err != nil {
		return "", nil, err
	}
	if fs.NArg() == 0 {
		return "", nil, errors.New("missing share URL")
	}

	shareURL := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return "", nil, err
	}
	if fs.NArg() > 0 {
		return "", nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return shareURL, flags, nil
}

func loadSettings(flags *downloadFlags) (*config.Settings, error) {
	settings := config.DefaultSettings()
	if flags.config != "" {
		var err error
		settings, err = config.Load(flags.config)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := settings.LoadEnv(); err != nil {
		return nil, err
	}

	// Apply flags
	if flags.excludeExts != "" {
		settings.ExcludeExtensions = model.ParseExtensionList(flags.excludeExts).Slice()
	}
	if flags.maxWorkers != 0 {
		settings.MaxConcurrentDownloads = flags.maxWorkers
	}
	if flags.output != "" {
		settings.DownloadsPath = flags.output
	}
	if flags.jobTimeout != 0 {
		settings.JobTimeout = flags.jobTimeout.Seconds()
	}
	if flags.verbose {
		settings.LogLevel = "debug"
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func newLogger(w io.Writer, settings *config.Settings) *slog.Logger {
	level, _ := settings.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runDownload(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	shareURL, flags, err := parseDownloadArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintln(stderr, "Run 'thucloud-dl help' for usage.")
		return exitUsage
	}

	settings, err := loadSettings(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	log := newLogger(stderr, settings)
	out := newPrinter(stdout, flags.verbose)

	manager := download.NewManager(settings, log, out.event)

	out.header()

	if err := manager.Initialize(ctx, shareURL); err != nil {
		return initExitCode(ctx, err, stderr)
	}

	if flags.dryRun {
		out.manifest(manager.Manifest())
		fmt.Fprintln(stdout, "\n[Dry run - not downloading]")
		return exitOK
	}

	fmt.Fprintln(stdout, "\nStarting downloads...")
	fmt.Fprintln(stdout)

	stopBar := out.progress(manager)
	report, err := manager.StartDownloads(ctx)
	stopBar()

	if err != nil {
		fmt.Fprintf(stderr, "Error during download: %v\n", err)
		return exitError
	}

	out.summary(report, manager, ctx.Err() != nil)

	switch {
	case ctx.Err() != nil:
		fmt.Fprintln(stderr, "\nDownload cancelled.")
		return exitInterrupted
	case len(report.Failed()) > 0:
		return exitTransfers
	}
	return exitOK
}

func initExitCode(ctx context.Context, err error, stderr io.Writer) int {
	var (
		cerr *thucloud.ConfigurationError
		derr *thucloud.DiscoveryError
	)
	switch {
	case ctx.Err() != nil:
		fmt.Fprintln(stderr, "\nInterrupted.")
		return exitInterrupted
	case errors.As(err, &derr):
		fmt.Fprintf(stderr, "Listing failed: %v\n", err)
		return exitDiscovery
	case errors.As(err, &cerr), errors.Is(err, cloudhttp.ErrNotFound):
		fmt.Fprintf(stderr, "Invalid share: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "Error initializing: %v\n", err)
		return exitError
	}
}
