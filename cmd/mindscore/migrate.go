package main

import (
	"context"
	"time"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/mindscore/pkg/backend"
	"github.com/hyp3rd/mindscore/pkg/catalog"
)

func migrateSubcommand(flags *rootFlags) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Imports the flat JSON files of --from into the configured backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := flags.load()
			if err != nil {
				return err
			}

			st, err := openStore(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer st.Close()

			_, err = migrateLegacy(cmd.Context(), from, st, time.Now)

			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "data", "directory holding the legacy JSON files")

	return cmd
}

// migrateLegacy copies every readable legacy entry of dir into st and returns how many
// were stored. Entries without a timestamp get now(). Entries the store refuses are
// logged and skipped, so running it twice does not duplicate the derived ids.
func migrateLegacy(ctx context.Context, dir string, st store, now func() time.Time) (int, error) {
	total := 0

	for _, def := range catalog.All() {
		items, err := backend.LoadLegacyFile(dir, def)
		if err != nil {
			log.WithError(err).WithField("test", def.TestType).Warn("no data")

			continue
		}

		migrated := 0

		for _, res := range items {
			if res.Timestamp.IsZero() {
				res.Timestamp = now().UTC()
			}

			err = st.Create(ctx, res)
			if err != nil {
				if ctx.Err() != nil {
					return total, ctx.Err()
				}

				log.WithError(err).WithFields(log.Fields{
					"test": def.TestType,
					"id":   res.ID,
				}).Warn("skipping result")

				continue
			}

			migrated++
		}

		total += migrated

		log.WithFields(log.Fields{
			"test":     def.TestType,
			"migrated": migrated,
		}).Info("migrated")
	}

	log.WithField("total", total).Info("migration done")

	return total, nil
}
