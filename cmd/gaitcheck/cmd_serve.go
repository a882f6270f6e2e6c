package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gait.report/internal/api"
	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait/synth"
	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/rangestore"
)

var serveFlags struct {
	listen    string
	noHistory bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the validation engine over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.listen, "listen", "", "Listen address (default: from config)")
	f.BoolVar(&serveFlags.noHistory, "no-history", false, "Disable the run history database")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	listen := cfg.GetListen()
	if serveFlags.listen != "" {
		listen = serveFlags.listen
	}

	var runs api.RunStore
	if !serveFlags.noHistory {
		database, err := db.Open(cfg.GetDBPath())
		if err != nil {
			return err
		}
		defer database.Close()
		runs = database
	}

	cache := rangestore.NewFileCache(fsys, cfg.RangesPaths())
	server := api.NewServer(cache, runs, api.Options{
		Synth: synth.Options{
			NumPoints:   cfg.GetNumPoints(),
			Margin:      cfg.GetSafetyMargin(),
			Amplitude:   cfg.GetAmplitudeFraction(),
			Noise:       cfg.GetNoiseFraction(),
			Seed:        cfg.GetSeed(),
			PerStepSeed: cfg.GetPerStepSeed(),
		},
		BufferFactor: cfg.GetBufferFactor(),
	})

	httpServer := &http.Server{
		Addr:              listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := cmd.Context()
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("listening on %s", listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	monitoring.Logf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := httpServer.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	monitoring.Logf("graceful shutdown complete")
	return nil
}
