package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sudo-s14/sliding-sync/config"
	"github.com/sudo-s14/sliding-sync/internal/httputil"
	"github.com/sudo-s14/sliding-sync/internal/store"
	"github.com/sudo-s14/sliding-sync/slidingsync"
)

func newSyncCommand(rootOpts *rootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the long-poll sync loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), rootOpts.ConfigPath, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "perform a single sync_once call and exit")

	return cmd
}

func runSync(ctx context.Context, configPath string, once bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	storePath := cfg.StorePath
	if storePath == "" {
		storePath, err = store.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving default store path: %w", err)
		}
	}
	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	if err := restoreEngineState(engine, st, cfg.ConnID); err != nil {
		logrus.WithError(err).Warn("could not restore prior sync state, starting fresh")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logrus.Info("received interrupt, shutting down")
		cancel()
	}()

	for {
		update, err := engine.SyncOnce(ctx, cfg.HomeserverURL, cfg.GetAccessToken(), cfg.UserID, nil)
		if err != nil {
			if _, ok := err.(*slidingsync.CursorExpiredError); ok {
				logrus.WithError(err).Warn("cursor expired, retrying with a fresh sync")
				continue
			}
			return fmt.Errorf("sync_once: %w", err)
		}

		logSyncUpdate(update)

		if err := persistEngineState(engine, st, cfg.ConnID); err != nil {
			logrus.WithError(err).Warn("failed to persist sync state")
		}

		if once {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func buildEngine(cfg *config.Config) (*slidingsync.Engine, error) {
	connID := cfg.ConnID
	if connID == "" {
		connID = uuid.NewString()
	}

	engine := slidingsync.NewEngine(slidingsync.EngineConfig{
		Transport:       httputil.LoggingTransport{Next: httputil.NewClient()},
		ConnID:          connID,
		CatchUpTimeout:  cfg.Timeouts.CatchUp,
		LongPollTimeout: cfg.Timeouts.LongPoll,
	})

	for _, l := range cfg.Lists {
		mode := slidingsync.ModeSelective
		switch l.Mode {
		case "paging":
			mode = slidingsync.ModePaging
		case "growing":
			mode = slidingsync.ModeGrowing
		}
		engine.AddList(slidingsync.ListConfig{
			Name:            l.Name,
			Mode:            mode,
			BatchSize:       l.BatchSize,
			MaxRoomsToFetch: l.MaxRoomsToFetch,
			TimelineLimit:   l.TimelineLimit,
		})
	}

	if cfg.Extensions.EnableAll {
		engine.EnableAllExtensions()
	} else {
		for _, name := range cfg.Extensions.Names {
			engine.EnableExtension(name)
		}
	}

	return engine, nil
}

func restoreEngineState(engine *slidingsync.Engine, st *store.Store, connID string) error {
	raw, err := st.Load(connID)
	if err != nil {
		return fmt.Errorf("loading persisted state: %w", err)
	}
	if raw == nil {
		return nil
	}

	var snap slidingsync.SyncState
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decoding persisted state: %w", err)
	}

	engine.RestoreState(&snap)
	return nil
}

func persistEngineState(engine *slidingsync.Engine, st *store.Store, connID string) error {
	data, err := json.Marshal(engine.ExportState())
	if err != nil {
		return fmt.Errorf("encoding sync state: %w", err)
	}
	return st.Save(connID, data)
}

func logSyncUpdate(update *slidingsync.SyncUpdate) {
	logrus.WithFields(logrus.Fields{
		"pos":     update.Pos,
		"joined":  len(update.Rooms.Joined),
		"invited": len(update.Rooms.Invited),
		"left":    len(update.Rooms.Left),
	}).Info("sync tick complete")
}
