package main

import (
	"fmt"
	"io/fs"
	"os"

	gormrepo "oceandepths/internal/adapter/repo/gorm"
	"oceandepths/migrations"

	"github.com/spf13/cobra"
)

func migrateCommand(opts *globalOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Long:  `Apply the embedded SQL migrations, or the *.sql files of --dir, in version order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			var fsys fs.FS = migrations.FS
			if dir != "" {
				fsys = os.DirFS(dir)
			}
			applied, err := gormrepo.ApplyMigrations(cmd.Context(), db, fsys)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory with *.sql migrations (defaults to the embedded set)")
	return cmd
}
