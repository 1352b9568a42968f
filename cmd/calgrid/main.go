package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"calgrid/internal/capture"
	"calgrid/internal/clock"
	"calgrid/internal/commands"
	"calgrid/internal/config"
	"calgrid/internal/ics"
	"calgrid/internal/locale"
	appLog "calgrid/internal/log"
	"calgrid/internal/metrics"
	"calgrid/internal/scheduler"
	"calgrid/internal/tui"
	"calgrid/internal/viewmodel"
	"calgrid/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	tui        bool
	snapshot   string
	debug      bool
	logFile    string
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(commands.HashPassword(os.Args[2:], os.Stdin, os.Stdout, os.Stderr))
	}

	flags := parseFlags()
	if err := run(flags); err != nil {
		appLog.Error("calgrid failed", err)
		os.Exit(1)
	}
}

func run(flags flagConfig) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if err := conf.ApplyEnv(); err != nil {
		return err
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.LogLevel = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if flags.tui {
		// The alternate screen owns the terminal.
		out := io.Discard
		if flags.logFile != "" {
			f, err := os.OpenFile(flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			out = f
		}
		appLog.SetOutput(out)
	}

	appLog.Info("calgrid starting", "version", version)

	loc, err := conf.Location()
	if err != nil {
		return err
	}
	if err := scheduler.ValidateSpec(conf.RefreshCron); err != nil {
		return err
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"locale", conf.Locale,
		"submit_delay", conf.SubmitDelay().String(),
		"refresh", conf.RefreshCron,
		"ics_count", len(conf.ICS),
		"basic_auth", conf.BasicAuth != nil,
		"tui", flags.tui,
		"snapshot", flags.snapshot,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	m := metrics.New()
	c := clock.In(clock.Real(), loc)
	var sess *viewmodel.Session
	sess = viewmodel.NewSession(c,
		viewmodel.WithDelay(conf.SubmitDelay()),
		viewmodel.OnApplied(func(sub viewmodel.Submission) {
			m.EventsAdded.WithLabelValues("user").Inc()
			m.StoredEvents.Set(float64(sess.State().Events.Len()))
			appLog.Info("event added", "date", sub.Date.Key())
		}),
	)
	defer sess.Close()

	syncer := ics.NewSyncer(
		ics.NewFetcher(conf.CacheDir),
		ics.SourcesFrom(conf.ICS),
		loc, sess, m,
	)
	if len(syncer.Sources()) > 0 {
		if n, err := syncer.Refresh(ctx); err != nil {
			appLog.Error("initial feed refresh incomplete", err, "added", n)
		}
	}

	switch {
	case flags.snapshot != "":
		srv := web.NewServer(conf, sess, web.WithMetrics(m))
		return capture.Snapshot(ctx, srv.PageHandler(), capture.Options{OutputPath: flags.snapshot})

	case flags.tui:
		model := tui.New(c,
			tui.WithDelay(conf.SubmitDelay()),
			tui.WithLocale(locale.New(conf.Locale)),
			tui.WithEvents(sess.State().Events),
			tui.OnApplied(func(sub viewmodel.Submission) {
				m.EventsAdded.WithLabelValues("user").Inc()
				appLog.Info("event added", "date", sub.Date.Key())
			}),
		)
		return tui.Run(ctx, model)
	}

	sched := scheduler.New(loc)
	if len(syncer.Sources()) > 0 {
		err := sched.Add("ics-refresh", conf.RefreshCron, func(ctx context.Context) error {
			_, err := syncer.Refresh(ctx)
			return err
		})
		if err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Start(ctx)
	}()

	srv := web.NewServer(conf, sess, web.WithMetrics(m), web.WithRefresher(syncer))
	err = srv.ListenAndServe(ctx)
	cancel()
	wg.Wait()
	appLog.Info("calgrid exiting")
	return err
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./calgrid.yaml", "Path to config file (created with defaults if missing)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.tui, "tui", false, "Run the terminal calendar instead of the HTTP server")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Render the calendar page to this PNG with headless Chromium and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&cfg.logFile, "log-file", "", "Log file for -tui mode (logs are discarded otherwise)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: calgrid [OPTIONS]\n       calgrid hash-password [OPTIONS]\n\nOptions:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	return cfg
}
