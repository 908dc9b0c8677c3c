package main

import (
	"fmt"
	"time"

	gormrepo "oceandepths/internal/adapter/repo/gorm"
	"oceandepths/internal/app/cities"
	"oceandepths/internal/domain/catalog"

	"github.com/spf13/cobra"
)

func seedCityCommand(opts *globalOptions) *cobra.Command {
	var player, name string
	cmd := &cobra.Command{
		Use:   "seed-city",
		Short: "Found a new city for a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			db, err := opts.open()
			if err != nil {
				return err
			}
			uc := cities.UseCase{
				Cities:  gormrepo.NewCityRepo(db),
				Catalog: catalog.MustDefault(),
				Config:  cfg,
				Logger:  newLogger(cmd),
				Now:     time.Now,
			}
			c, err := uc.Create(cmd.Context(), cities.CreateRequest{PlayerID: player, Name: name})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%dx%d\n", c.ID, c.Name, c.Grid.Width, c.Grid.Height)
			return nil
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "owning player id")
	cmd.Flags().StringVar(&name, "name", "", "city name")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}
