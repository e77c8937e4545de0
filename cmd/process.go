package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/siterisk/internal/pipeline"
	"github.com/sells-group/siterisk/internal/reconcile"
	"github.com/sells-group/siterisk/internal/report"
)

// Views selectable with --view.
const (
	viewHitList   = "hitlist"
	viewRecords   = "records"
	viewSummary   = "summary"
	viewOffenders = "offenders"
	viewCauses    = "causes"
	viewSites     = "sites"
	viewOptions   = "options"
)

var (
	processFile   string
	processRegion string
	processView   string
	processFormat string
	processLimit  int
	processFilter filterFlags
)

// filterFlags binds the shared working-set filter flags.
type filterFlags struct {
	periods      []string
	technologies []string
	counties     []string
	priorities   []string
	critical     bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.periods, "period", nil, "only include these periods")
	cmd.Flags().StringSliceVar(&f.technologies, "technology", nil, "only include these site technologies")
	cmd.Flags().StringSliceVar(&f.counties, "county", nil, "only include these counties")
	cmd.Flags().StringSliceVar(&f.priorities, "priority", nil, "only include these priorities")
	cmd.Flags().BoolVar(&f.critical, "critical", false, "only include critical incidents")
}

func (f *filterFlags) filter() reconcile.Filter {
	return reconcile.Filter{
		Periods:      f.periods,
		Technologies: f.technologies,
		Counties:     f.counties,
		Priorities:   f.priorities,
		CriticalOnly: f.critical,
	}
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Reconcile a workbook and print a report view",
	Long:  "Loads the incident sheet and the region's site registry, merges them, computes risk metrics and prints the selected view.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		src := env.Source(processFile)
		res, err := env.Runner.Run(ctx, src, processRegion)
		if err != nil {
			return eris.Wrapf(err, "process %s", src.Label())
		}
		printWarnings(cmd.ErrOrStderr(), res)

		limit := processLimit
		if limit == 0 && (processView == viewHitList || processView == "") {
			limit = cfg.Server.HitListLength
		}
		return writeView(cmd.OutOrStdout(), res, processView, processFormat, processFilter.filter(), limit)
	},
}

// writeView renders one view of res over the filtered working set.
func writeView(w io.Writer, res *pipeline.Result, view, format string, f reconcile.Filter, limit int) error {
	t := reconcile.Apply(res.Table, f)

	switch view {
	case viewHitList, "":
		hl := report.BuildHitList(t, limit)
		return render(w, format, hl, hitListTable(hl))
	case viewRecords:
		return render(w, format, t, recordsTable(t))
	case viewSummary:
		s := report.Summarize(t)
		return render(w, format, s, summaryTable(s))
	case viewOffenders:
		o := report.TopOffenders(t, limit)
		return render(w, format, o, offendersTable(o))
	case viewCauses:
		nodes, ok := report.RootCauses(t)
		if !ok {
			return eris.New("workbook has no cause columns")
		}
		return render(w, format, nodes, causesTable(nodes))
	case viewSites:
		if format != formatJSON {
			return eris.Errorf("the sites view is only available as json")
		}
		data, err := report.MarshalSitePoints(t)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return eris.Wrap(err, "write site points")
	case viewOptions:
		o := reconcile.Options(res.Table)
		return render(w, format, o, optionsTable(o))
	default:
		return eris.Errorf("unknown view %q", view)
	}
}

func printWarnings(w io.Writer, res *pipeline.Result) {
	for _, warn := range res.Warnings {
		zap.L().Warn("process: degraded input", zap.String("source", res.Source), zap.String("warning", warn))
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func init() {
	processCmd.Flags().StringVar(&processFile, "file", "", "workbook path or http/ftp URL (default from config)")
	processCmd.Flags().StringVar(&processRegion, "region", "", "region code selecting the site registry (default from config)")
	processCmd.Flags().StringVar(&processView, "view", viewHitList, "report view: hitlist, records, summary, offenders, causes, sites, options")
	processCmd.Flags().StringVar(&processFormat, "format", formatTable, "output format: table, json, yaml")
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "rows for hitlist and offenders views (default from config)")
	processFilter.register(processCmd)
	rootCmd.AddCommand(processCmd)
}
