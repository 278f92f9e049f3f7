package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/movie-harvester/internal/runs"
)

// newHarvestCmd creates the 'harvest' subcommand for the catalog path.
func newHarvestCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Discover and enrich movies per language",
		Long: `Pages through the metadata API's discovery endpoint for each configured
language and release year, enriches every candidate with details and credits,
and writes one CSV per language to the configured blob store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, runs.KindCatalog, flags.params())
		},
	}
	flags.bind(cmd, true)
	return cmd
}

// newListingCmd creates the 'listing' subcommand for the listing path.
func newListingCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "listing",
		Short: "Reconcile the yearly release listing against the catalog",
		Long: `Fetches the public release listing for a year, matches every title against
the metadata API, flags rows that changed since the previous snapshot, and
replaces the snapshot.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, runs.KindListing, flags.params())
		},
	}
	flags.bind(cmd, false)
	return cmd
}

// newNormalizeCmd creates the 'normalize' subcommand.
func newNormalizeCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Build the dimensional model from stored exports",
		Long: `Reads the catalog and listing CSVs of a year from the blob store, builds
dimension, fact and bridge tables, writes them as JSON and, with --load,
replaces the Postgres tables in one transaction.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, runs.KindNormalize, flags.params())
		},
	}
	flags.bind(cmd, true)
	return cmd
}
