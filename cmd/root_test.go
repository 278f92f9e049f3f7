package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movie-harvester/internal/config"
)

func stubConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	orig := loadConfig
	t.Cleanup(func() { loadConfig = orig })
	loadConfig = func(string) (config.Config, error) {
		cfg, err := config.Load("")
		if err != nil {
			return config.Config{}, err
		}
		cfg.TMDB.APIKey = ""
		cfg.DB.DSN = ""
		cfg.Storage.Backend = "memory"
		cfg.Logging.Development = false
		if mutate != nil {
			mutate(&cfg)
		}
		return cfg, nil
	}
}

func execute(args ...string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestHarvestRequiresAPIKey(t *testing.T) {
	stubConfig(t, nil)
	require.ErrorContains(t, execute("harvest", "--languages", "ko"), "tmdb.api_key is required")
	require.ErrorContains(t, execute("listing", "--year", "2023"), "tmdb.api_key is required")
}

func TestNormalizeWithoutExportsFails(t *testing.T) {
	stubConfig(t, nil)
	require.ErrorContains(t, execute("normalize", "--year", "2023"), "no exports found for 2023")
}

func TestFlagsBindParameters(t *testing.T) {
	var flags runFlags
	cmd := &cobra.Command{Use: "probe"}
	flags.bind(cmd, true)
	require.NoError(t, cmd.ParseFlags([]string{"--languages", "ko,ja", "--year", "2022", "--max-pages", "3", "--load"}))

	params := flags.params()
	require.Equal(t, []string{"ko", "ja"}, params.Languages)
	require.Equal(t, 2022, params.Year)
	require.Equal(t, 3, params.MaxPages)
	require.True(t, params.Load)
}

func TestConfigErrorSurfaces(t *testing.T) {
	orig := loadConfig
	t.Cleanup(func() { loadConfig = orig })
	loadConfig = func(string) (config.Config, error) {
		return config.Config{}, errors.New("unknown storage.backend")
	}
	require.ErrorContains(t, execute("normalize"), "load config: unknown storage.backend")
}
