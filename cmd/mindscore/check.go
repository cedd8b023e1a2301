package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/mindscore/pkg/backend"
	"github.com/hyp3rd/mindscore/pkg/catalog"
)

const checkExamples = 3

func checkSubcommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Prints per test counts and a few stored results",
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

			return check(cmd.Context(), st, cmd.OutOrStdout())
		},
	}
}

func check(ctx context.Context, st store, out io.Writer) error {
	for _, testType := range catalog.Names() {
		total, err := st.Count(ctx, backend.WithTestType(testType))
		if err != nil {
			return err
		}

		withUser, err := st.Count(ctx, backend.WithTestType(testType), backend.WithUserOnly())
		if err != nil {
			return err
		}

		examples, err := st.List(ctx, backend.WithTestType(testType), backend.WithLimit(checkExamples))
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(examples, "", "  ")
		if err != nil {
			return ewrap.Wrap(err, "encoding examples")
		}

		_, err = fmt.Fprintf(out, "%s: %d total (%d with user)\n%s\n", testType, total, withUser, data)
		if err != nil {
			return ewrap.Wrap(err, "writing report")
		}
	}

	return nil
}
