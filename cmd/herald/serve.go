package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dreamware/herald/internal/api"
	"github.com/dreamware/herald/internal/chat"
	"github.com/dreamware/herald/internal/config"
	"github.com/dreamware/herald/internal/failover"
	"github.com/dreamware/herald/internal/logging"
	"github.com/dreamware/herald/internal/membership"
	"github.com/dreamware/herald/internal/notify"
	"github.com/dreamware/herald/internal/storage"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func openStore(cfg *config.Config, log logrus.FieldLogger) (storage.Store, error) {
	if cfg.DataDir == "" {
		log.Info("chat data kept in memory")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.OpenPebble(cfg.DataDir, true)
	if err != nil {
		return nil, err
	}
	log.WithField("data_dir", cfg.DataDir).Info("chat data stored in pebble")
	return store, nil
}

// runServe wires the components and serves until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("closing store")
		}
	}()

	role := failover.RoleActive
	if cfg.Passive() {
		role = failover.RolePassive
	}

	reg := notify.NewRegistry()
	disp := notify.NewDispatcher(reg, log)
	members := membership.NewStore()
	state := failover.NewState(role)
	coord := failover.NewCoordinator(state, disp, log, failover.Options{
		Peer:        cfg.Peer,
		Interval:    cfg.ProbeInterval,
		Timeout:     cfg.ProbeTimeout,
		MaxFailures: cfg.MaxFailures,
	})

	srv := api.New(api.Deps{
		Registry:    reg,
		Dispatcher:  disp,
		Waiter:      notify.NewWaiter(reg, members, state, cfg.SubscribeTimeout),
		Members:     members,
		State:       state,
		Coordinator: coord,
		Chat:        chat.NewRepository(store),
		Log:         log,
	})

	log.WithFields(logrus.Fields{
		"listen": cfg.Listen,
		"role":   role,
		"peer":   cfg.Peer,
	}).Info("starting herald")

	go coord.Start(ctx)
	defer coord.Stop()

	if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
		return errors.Wrap(err, "http server")
	}
	log.Info("herald stopped")
	return nil
}
