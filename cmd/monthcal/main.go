package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"monthcal/internal/clock"
	"monthcal/internal/config"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/schedule"
	"monthcal/internal/store"
	"monthcal/internal/termview"
	"monthcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	database   string
	print      string
	syncOnce   bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.database != "" {
		conf.Database = flags.database
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if err := run(flags, conf); err != nil {
		appLog.Error("monthcal failed", err)
		os.Exit(1)
	}
}

func run(flags flagConfig, conf *config.Config) error {
	loc := conf.Location()

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"database", conf.Database,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"ics_count", len(conf.ICS),
	)

	st, err := store.Open(conf.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	clk := clock.NewSystem(loc)
	svc := schedule.NewService(st, clk, schedule.WithLocation(loc))

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.print != "" {
		return printMonth(ctx, svc, flags.print)
	}

	syncer := ics.NewSyncer(ics.NewFetcher(conf.CacheDir), st, clk, ics.OptionsFromConfig(conf))
	syncer.SetSources(ics.SourcesFromConfig(conf), ics.OptionsFromConfig(conf))

	if flags.syncOnce {
		return syncer.Run(ctx)
	}

	sched := cron.New()
	refresh := func() {
		if err := syncer.Run(ctx); err != nil {
			appLog.Error("scheduled ics sync finished with errors", err)
		}
	}
	entry, err := sched.AddFunc(conf.RefreshCron, refresh)
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", conf.RefreshCron, err)
	}
	sched.Start()
	defer sched.Stop()

	go refresh()

	srv := web.NewServer(svc, syncer, conf.BasicAuth)

	go func() {
		spec := conf.RefreshCron
		err := config.Watch(ctx, flags.configPath, func(c *config.Config) {
			appLog.SetLevel(appLog.ParseLevel(c.LogLevel))
			srv.SetBasicAuth(c.BasicAuth)
			syncer.SetSources(ics.SourcesFromConfig(c), ics.OptionsFromConfig(c))

			if c.RefreshCron != spec {
				id, err := sched.AddFunc(c.RefreshCron, refresh)
				if err != nil {
					appLog.Error("invalid refresh schedule; keeping previous", err, "refresh", c.RefreshCron)
				} else {
					sched.Remove(entry)
					entry, spec = id, c.RefreshCron
				}
			}
			if c.Location().String() != loc.String() {
				appLog.Warn("timezone change takes effect after restart", "timezone", c.Timezone)
			}
			go refresh()
		})
		if err != nil {
			appLog.Error("config watcher stopped", err, "path", flags.configPath)
		}
	}()

	err = srv.ListenAndServe(ctx, conf.Listen)

	// Let an in-flight sync observe cancellation before the store closes.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("monthcal exiting")
	return err
}

// printMonth renders the month named by ym (YYYY-MM, or "now") to stdout.
func printMonth(ctx context.Context, svc *schedule.Service, ym string) error {
	year, month := svc.Today()
	if ym != "now" {
		t, err := time.Parse("2006-01", ym)
		if err != nil {
			return errors.New("-print wants YYYY-MM or now")
		}
		year, month = t.Year(), t.Month()
	}

	days, err := svc.Month(ctx, year, month, schedule.Filter{})
	if err != nil {
		return err
	}
	fmt.Println(termview.RenderMonth(days, year, month, termview.Options{}))
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/monthcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.database, "db", "", "SQLite database path (overrides config if set)")
	flag.StringVar(&cfg.print, "print", "", "Print the month YYYY-MM (or \"now\") to the terminal and exit")
	flag.BoolVar(&cfg.syncOnce, "sync-once", false, "Sync ICS subscriptions once and exit")

	flag.Parse()

	return cfg
}
