package main

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func statsSubcommand(flags *rootFlags) *cobra.Command {
	var testType, userID string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Prints the outlier-filtered statistics of a test",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := flags.load()
			if err != nil {
				return err
			}

			svc, err := openService(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Stop(context.Background()) }()

			computed, err := svc.Stats(cmd.Context(), testType, userID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(computed)
		},
	}

	cmd.Flags().StringVar(&testType, "test", "", "test type, e.g. reflex")
	cmd.Flags().StringVar(&userID, "user", "", "only the results of this user")
	_ = cmd.MarkFlagRequired("test")

	return cmd
}
