package main

import (
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/siterisk/internal/pipeline"
)

var (
	sheetsFile   string
	sheetsFormat string
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List workbook sheets and the registry each region resolves to",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		src := env.Source(sheetsFile)
		inv, err := env.Processor.Inspect(ctx, src)
		if err != nil {
			return eris.Wrapf(err, "inspect %s", src.Label())
		}
		return render(cmd.OutOrStdout(), sheetsFormat, inv, inventoryTable(inv))
	},
}

func inventoryTable(inv *pipeline.Inventory) func(*tablewriter.Table) {
	return func(tw *tablewriter.Table) {
		tw.SetHeader([]string{"Region", "Registry sheet", "Status"})
		codes := make([]string, 0, len(inv.Regions))
		for code := range inv.Regions {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			res := inv.Regions[code]
			tw.Append([]string{code, res.Sheet, res.Status})
		}
		tw.SetCaption(true, "incident sheet: "+inv.IncidentSheet)
	}
}

func init() {
	sheetsCmd.Flags().StringVar(&sheetsFile, "file", "", "workbook path or http/ftp URL (default from config)")
	sheetsCmd.Flags().StringVar(&sheetsFormat, "format", formatTable, "output format: table, json, yaml")
	rootCmd.AddCommand(sheetsCmd)
}
