package main

import (
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Embed the corpus and upsert it into the index",
	Long: `Populate the vector index from the configured corpus. Records with the
same id are overwritten, so running seed repeatedly leaves the index unchanged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if a.credErr != nil {
			return a.credErr
		}

		n, err := a.population().Populate(cmd.Context(), a.docs)
		if err != nil {
			return err
		}
		cmd.Printf("Indexed %d documents into %q (%d records)\n", len(a.docs), a.cfg.Index.Collection, n)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the collection and rebuild it from the corpus",
	Long: `Drop and recreate the vector index collection, then populate it.
This is the only command that deletes indexed data.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if a.credErr != nil {
			return a.credErr
		}

		n, err := a.population().Reset(cmd.Context(), a.docs)
		if err != nil {
			return err
		}
		cmd.Printf("Reset %q: %d records\n", a.cfg.Index.Collection, n)
		return nil
	},
}
