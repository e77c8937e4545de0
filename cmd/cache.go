package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/siterisk/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the result cache",
	Long:  "Commands for purging expired results, dropping a source's results and showing cache statistics.",
}

// openCache builds the configured cache, erroring when caching is disabled.
func openCache(cmd *cobra.Command) (*reportEnv, error) {
	env, err := initEnv(cmd.Context(), "process")
	if err != nil {
		return nil, err
	}
	if env.Cache == nil {
		env.Close()
		return nil, eris.New("cache is disabled (cache.driver is none)")
	}
	return env, nil
}

// -- cache purge --

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Cache.Purge(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired result(s).\n", n)
		return nil
	},
}

// -- cache invalidate --

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <source>",
	Short: "Remove every result cached for a source",
	Long:  "Removes the results for a source label such as file:data/ops.xlsx, upload:ops.xlsx or remote:https://host/ops.xlsx.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Cache.Invalidate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d result(s) for %s.\n", n, args[0])
		return nil
	},
}

// -- cache stats --

var cacheStatsFormat string

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Cache.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), cacheStatsFormat, stats, statsTable(stats))
	},
}

func statsTable(s cache.Stats) func(*tablewriter.Table) {
	return func(tw *tablewriter.Table) {
		tw.SetHeader([]string{"Entries", "Hits", "Misses", "Hit rate"})
		tw.Append([]string{
			strconv.Itoa(s.Entries),
			strconv.FormatInt(s.Hits, 10),
			strconv.FormatInt(s.Misses, 10),
			fmt.Sprintf("%.1f%%", s.HitRate*100),
		})
	}
}

func init() {
	cacheStatsCmd.Flags().StringVar(&cacheStatsFormat, "format", formatTable, "output format: table, json, yaml")
	cacheCmd.AddCommand(cachePurgeCmd, cacheInvalidateCmd, cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
