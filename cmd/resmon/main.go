package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atinylittleshell/resmon/internal/config"
	"github.com/atinylittleshell/resmon/internal/core"
	"github.com/atinylittleshell/resmon/internal/monitor"
	"github.com/atinylittleshell/resmon/internal/recorder"
	"github.com/atinylittleshell/resmon/internal/system"
	"github.com/atinylittleshell/resmon/internal/termtitle"
	"github.com/atinylittleshell/resmon/internal/ui"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var BUILD_VERSION = "dev"

var configFile = flag.String("config", "", "use a custom config file instead of ~/.config/resmon/config.yaml")
var dbFile = flag.String("db", "", "path of the sample database (default resource_monitor.db)")
var intervalMS = flag.Int("interval", 0, "sampling interval in milliseconds, 500-5000")
var headless = flag.Bool("headless", false, "record without the terminal UI until interrupted")
var historyLimit = flag.Int("history", 0, "print the N most recent records and exit")

var helpFlag = flag.Bool("h", false, "display help information")
var versionFlag = flag.Bool("ver", false, "display build version")

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(BUILD_VERSION)
		return
	}

	if *helpFlag {
		fmt.Println("Usage of resmon:")
		flag.PrintDefaults()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "resmon: %v\n", err)
		os.Exit(1)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resmon: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync() // Flush any buffered log entries
	}()

	logger.Info("-------- new resmon session --------", zap.Any("args", os.Args))

	if err := run(cfg, logger); err != nil {
		logger.Error("unhandled error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "resmon: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := recorder.Open(cfg.Database, recorder.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Warn("failed to close sample store", zap.Error(err))
		}
	}()

	if *historyLimit > 0 {
		return printHistory(os.Stdout, rec, *historyLimit, time.Now())
	}

	host := system.GetHostInfo(ctx)
	logger.Info("host", zap.String("hostname", host.Hostname), zap.String("platform", host.Platform))

	// without a terminal there is nobody to press start, so record right away
	headlessMode := *headless || !term.IsTerminal(int(os.Stdin.Fd()))

	sampler := system.NewSampler()
	opts := []monitor.Option{monitor.WithInterval(cfg.Interval())}
	if headlessMode {
		title := termtitle.New(logger)
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			title = nil
		}
		opts = append(opts, monitor.WithTickHandler(func(snap monitor.Snapshot) {
			printSnapshot(os.Stdout, snap)
			if title != nil {
				_ = title.Update(snap)
			}
		}))
		if title != nil {
			defer func() {
				_ = title.Reset()
			}()
		}
	}

	mon := monitor.New(sampler, rec, logger, opts...)
	if err := mon.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize sampler: %w", err)
	}

	if headlessMode {
		logger.Info("recording headless", zap.Duration("interval", mon.Interval()))
		return mon.Run(ctx)
	}

	return ui.Run(ctx, mon, host, logger)
}

func loadConfig() (config.Config, error) {
	path := *configFile
	if path == "" {
		path = core.ConfigFile()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if *dbFile != "" {
		cfg.Database = *dbFile
	}
	if *intervalMS != 0 {
		cfg.IntervalMS = *intervalMS
	}
	return cfg, nil
}

func initializeLogger(cfg config.Config) (*zap.Logger, error) {
	logLevel := cfg.Level()
	if BUILD_VERSION == "dev" {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	if cfg.CleanLogFile {
		_ = os.Remove(core.LogFile())
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{
		core.LogFile(),
	}
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

func printSnapshot(w io.Writer, snap monitor.Snapshot) {
	line := fmt.Sprintf("%s  %s  %s  %s",
		snap.Sample.Timestamp.Format(recorder.TimestampLayout),
		ui.FormatCPU(snap),
		ui.FormatRAM(snap),
		ui.FormatDisk(snap),
	)
	if snap.Recording {
		line += "  " + snap.Elapsed
	}
	fmt.Fprintln(w, line)
}

func printHistory(w io.Writer, rec *recorder.Recorder, limit int, now time.Time) error {
	stats, err := rec.RecentRecords(limit)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(w, "no records")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Timestamp", "CPU %", "RAM GB", "Disk GB", "Age")
	for _, stat := range stats {
		age := ""
		if ts, err := time.ParseInLocation(recorder.TimestampLayout, stat.Timestamp, time.Local); err == nil {
			age = humanize.RelTime(ts, now, "ago", "from now")
		}
		t.Row(
			fmt.Sprintf("%d", stat.ID),
			stat.Timestamp,
			fmt.Sprintf("%.1f", stat.CPU),
			fmt.Sprintf("%.2f", stat.RAM),
			fmt.Sprintf("%.2f", stat.Disk),
			age,
		)
	}

	_, err = fmt.Fprintln(w, t.String())
	return err
}
