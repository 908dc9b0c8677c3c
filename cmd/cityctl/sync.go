package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	gormrepo "oceandepths/internal/adapter/repo/gorm"
	"oceandepths/internal/app/action"
	"oceandepths/internal/app/ports"
	"oceandepths/internal/domain/catalog"
	"oceandepths/internal/domain/lifecycle"
	"oceandepths/internal/domain/simulation"
	"oceandepths/internal/platform/keylock"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type cityOutcomes struct {
	CityID   string
	Outcomes []lifecycle.Outcome
}

func syncCommand(opts *globalOptions) *cobra.Command {
	var player string
	var parallel int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Complete every due action across a player's cities",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			db, err := opts.open()
			if err != nil {
				return err
			}
			registry := catalog.MustDefault()
			uc := action.UseCase{
				TxManager: gormrepo.NewTxManager(db),
				Cities:    gormrepo.NewCityRepo(db),
				Actions:   gormrepo.NewActionRepo(db),
				Catalog:   registry,
				Simulator: simulation.Simulator{Buildings: registry, Tuning: cfg.Simulation, DefaultCapacity: cfg.DefaultCapacity},
				Config:    cfg,
				Locks:     keylock.New(),
				Logger:    newLogger(cmd),
				Now:       time.Now,
			}
			results, err := syncPlayer(cmd.Context(), uc, uc.Cities, player, parallel)
			if err != nil {
				return err
			}
			printOutcomes(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "player whose cities are synced")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "cities synced concurrently")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

// syncPlayer runs the action sync of every city owned by playerID, at most
// parallel cities at a time. Results are ordered by city id.
func syncPlayer(ctx context.Context, uc action.UseCase, cityRepo ports.CityRepository, playerID string, parallel int) ([]cityOutcomes, error) {
	ids, err := cityRepo.ListIDsByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if parallel < 1 {
		parallel = 1
	}
	results := make([]cityOutcomes, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			outcomes, err := uc.Sync(gctx, action.SyncRequest{CityID: id, PlayerID: playerID})
			if err != nil {
				return fmt.Errorf("sync city %s: %w", id, err)
			}
			results[i] = cityOutcomes{CityID: id, Outcomes: outcomes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(results, func(a, b int) bool { return results[a].CityID < results[b].CityID })
	return results, nil
}

func printOutcomes(out io.Writer, results []cityOutcomes) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CITY\tACTION\tTYPE\tSTATUS\tREMAINING")
	for _, r := range results {
		for _, o := range r.Outcomes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", r.CityID, o.ActionID, o.ActionType, o.Status, o.RemainingSeconds)
		}
	}
	w.Flush()
}
