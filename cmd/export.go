package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/siterisk/internal/reconcile"
	"github.com/sells-group/siterisk/internal/report"
)

var (
	exportFile   string
	exportRegion string
	exportOut    string
	exportFilter filterFlags
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the priority hit list as an XLSX report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		src := env.Source(exportFile)
		res, err := env.Runner.Run(ctx, src, exportRegion)
		if err != nil {
			return eris.Wrapf(err, "process %s", src.Label())
		}
		printWarnings(cmd.ErrOrStderr(), res)

		opts := report.ExportOptions{SheetName: cfg.Export.SheetName, FileTemplate: cfg.Export.FileTemplate}
		out := exportOut
		if out == "" {
			out = opts.FileName(res.Resolution.Requested)
		} else if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
			out = filepath.Join(out, opts.FileName(res.Resolution.Requested))
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrap(err, "create report file")
		}
		defer f.Close() //nolint:errcheck

		t := reconcile.Apply(res.Table, exportFilter.filter())
		if err := report.WriteHitList(f, t, opts); err != nil {
			return err
		}
		if err := f.Sync(); err != nil {
			return eris.Wrap(err, "flush report file")
		}

		zap.L().Info("export complete", zap.String("path", out), zap.Int("records", t.Len()))
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFile, "file", "", "workbook path or http/ftp URL (default from config)")
	exportCmd.Flags().StringVar(&exportRegion, "region", "", "region code selecting the site registry (default from config)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file or directory (default <REGION>_Priority_Report.xlsx)")
	exportFilter.register(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
