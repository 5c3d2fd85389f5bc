package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
)

// Closer is any resource released on shutdown.
type Closer interface {
	Close() error
}

// App encapsulates the application lifecycle: the refresh scheduler, the
// HTTP server, and the infrastructure clients closed on shutdown.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	refresher *usecase.Refresher
	scheduler *usecase.Scheduler
	handler   xhttp.Handler

	httpServer *xhttp.Server
	closers    []Closer
}

// New assembles the app. closers are released in reverse order on
// shutdown; nil entries are allowed and skipped.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	refresher *usecase.Refresher,
	scheduler *usecase.Scheduler,
	handler xhttp.Handler,
	closers ...Closer,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		refresher: refresher,
		scheduler: scheduler,
		handler:   handler,
		closers:   closers,
	}
}

// Run starts the scheduler and the HTTP server and blocks until
// interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		a.scheduler.Run(ctx)
	}()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("service started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("ticker", a.refresher.Config().Ticker))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	<-schedulerDone
	return a.shutdown()
}

// RunOnce performs one synchronous full refresh, prints the resulting
// forecast, metrics, and portfolio as JSON, and exits without serving.
func (a *App) RunOnce() error {
	ctx := context.Background()
	st, err := a.refresher.FullRefresh(ctx, false)
	if err != nil {
		a.log.Error("one-shot refresh failed", applogger.Error(err))
		return err
	}

	out := map[string]interface{}{
		"ticker":            st.Ticker,
		"latest_price":      st.LatestPrice,
		"next_minute_price": st.NextMinutePrice,
		"next_hour_price":   st.NextHourPrice,
		"minute_mae":        st.MinuteMAE,
		"hour_mae":          st.HourMAE,
		"signals":           st.Signals,
		"portfolio":         st.Portfolio,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(data))

	a.closeResources()
	return nil
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.closeResources()
	a.log.Info("shutdown complete")
	return nil
}

func (a *App) closeResources() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("resource close error", applogger.Error(err))
		}
	}
}
