package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"evfmap/config"
	"evfmap/internal/adapter/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or empty the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show result cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached result",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}

func openExistingStore() (*store.BoltStore, string, error) {
	dbPath := config.CacheDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, dbPath, nil
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, dbPath, fmt.Errorf("failed to open result cache: %w", err)
	}
	return st, dbPath, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	st, dbPath, err := openExistingStore()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if st == nil {
		fmt.Fprintf(out, "No result cache at %s\n", dbPath)
		return nil
	}
	defer st.Close()

	n, err := st.Count()
	if err != nil {
		return fmt.Errorf("failed to count results: %w", err)
	}
	info, err := st.GetSchemaInfo()
	if err != nil {
		return fmt.Errorf("failed to read schema info: %w", err)
	}
	check, err := st.CheckMigration(GetConfig())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Cache:          %s\n", dbPath)
	fmt.Fprintf(out, "Results:        %d\n", n)
	fmt.Fprintf(out, "Schema version: %d\n", info.Version)
	fmt.Fprintf(out, "Config hash:    %s\n", info.ConfigHash)
	if check.NeedsRebuild {
		fmt.Fprintf(out, "Stale:          %s\n", check.Reason)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	st, dbPath, err := openExistingStore()
	if err != nil {
		return err
	}
	if st == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No result cache at %s\n", dbPath)
		return nil
	}
	defer st.Close()

	n, err := st.Count()
	if err != nil {
		return err
	}
	if err := st.Clear(); err != nil {
		return fmt.Errorf("failed to clear result cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached results\n", n)
	return nil
}
