package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hive/pkg/config"
	"hive/pkg/coord"
	"hive/pkg/eventlog"
	"hive/pkg/memory"
	"hive/pkg/projection"
	"hive/pkg/reservation"
	"hive/pkg/store"
)

// app bundles everything a subcommand needs against one project store.
// Commands call openApp in RunE, defer Close, and use the handles.
type app struct {
	cfg          config.Config
	store        *store.Store
	log          *eventlog.Log
	coordinator  *coord.Coordinator
	reservations *reservation.Manager
	memories     *memory.Store
	projectKey   string
}

// openApp resolves the project key, opens (and migrates) its database,
// and wires the full stack over it. projectFlag comes from the
// persistent --project flag; empty means derive from the working
// directory.
func openApp(ctx context.Context, projectFlag string) (*app, error) {
	home, err := store.ResolveHome()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Path(home))
	if err != nil {
		return nil, err
	}

	key, err := store.ProjectKey(projectFlag, "")
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.DBPath(home, key))
	if err != nil {
		return nil, err
	}
	if _, err := store.Migrate(ctx, st); err != nil {
		_ = st.Close()
		return nil, err
	}

	log := eventlog.New(st, key, nil, projection.Projectors()...)

	return &app{
		cfg:          cfg,
		store:        st,
		log:          log,
		coordinator:  coord.New(log, nil, cfg.GoneThreshold),
		reservations: reservation.NewManager(log, nil, cfg.ReservationTTL),
		memories: memory.NewStore(st.DB, memory.Options{
			TopK:     cfg.UpsertTopK,
			RRFK:     cfg.RRFK,
			Limit:    cfg.FindLimit,
			Window:   cfg.DecayWindow,
			HalfLife: cfg.DecayHalfLife,
		}),
		projectKey: key,
	}, nil
}

// Close releases the store handle.
func (a *app) Close() {
	_ = a.store.Close()
}

// openAppFor is openApp driven by a command's flags.
func openAppFor(cmd *cobra.Command) (*app, error) {
	project, err := cmd.Flags().GetString("project")
	if err != nil {
		return nil, fmt.Errorf("read --project: %w", err)
	}
	return openApp(cmd.Context(), project)
}
