package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickwork/internal/audit"
	"tickwork/internal/config"
	"tickwork/internal/executor"
	"tickwork/internal/job"
	"tickwork/internal/ratelimit"
	"tickwork/internal/scheduler"
	"tickwork/internal/store"
	"tickwork/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json/yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(cfg.LogxConfig())
	defer logSvc.Close()
	mgr.SetLogger(log)

	storeCfg, err := cfg.StoreConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(storeCfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// The sqlite driver can persist the audit trail; anything else falls
	// back to the in-memory log.
	var trail audit.Log
	if al, ok := st.(store.AuditLogger); ok {
		trail = al.AuditLog()
	} else {
		trail = audit.NewMemoryLog()
	}

	perMinute, perHour := cfg.Limits()
	limiter := ratelimit.New(perMinute, perHour)

	exec := executor.New(executor.Options{
		Handler: func(ctx context.Context, j *job.CronJob) error {
			// Payloads are opaque to this daemon; execution is observable
			// through the log and the audit trail.
			log.Info("running job",
				logx.String("job_id", j.ID),
				logx.String("job", j.Name),
				logx.String("action", j.Payload.Action))
			return nil
		},
		Limiter: limiter,
		Audit:   trail,
		Log:     log,
	})

	tick, err := cfg.TickInterval()
	if err != nil {
		return err
	}
	sched := scheduler.New(scheduler.Options{
		Store:           st,
		OnExecute:       exec.Execute,
		TickInterval:    tick,
		DefaultTimezone: cfg.Scheduler.Timezone,
		Log:             log,
	})

	if err := sched.Start(ctx); err != nil {
		return err
	}

	// Hot-reload: logging and rate limits re-apply in place. Tick interval
	// and storage driver changes need a restart.
	mgr.SetValidator(func(c *config.Config) error {
		_, err := c.TickInterval()
		return err
	})
	updates := mgr.Subscribe(1)
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	go func() {
		for c := range updates {
			logSvc.Apply(c.LogxConfig())
			pm, ph := c.Limits()
			limiter.SetLimits(pm, ph)
			log.Info("config reloaded",
				logx.Int("rate_per_minute", pm), logx.Int("rate_per_hour", ph))
		}
	}()

	// Periodic status line; cheap enough to keep always-on.
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				snap := sched.Snapshot()
				usage := exec.Usage()
				log.Debug("scheduler status",
					logx.Bool("running", snap.Running),
					logx.Int("jobs", snap.Jobs),
					logx.Int("minute_used", usage.MinuteUsed),
					logx.Int("hour_used", usage.HourUsed))
			}
		}
	}()

	<-ctx.Done()
	sched.Stop(context.Background())
	mgr.Unsubscribe(updates)
	return nil
}
