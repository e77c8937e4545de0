// Package pipeline turns one workbook into a reconciled, metric-annotated table.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/siterisk/internal/fetcher"
	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/reconcile"
	"github.com/sells-group/siterisk/internal/region"
	"github.com/sells-group/siterisk/internal/schema"
	"github.com/sells-group/siterisk/internal/source"
)

// DefaultIncidentSheet is the operations sheet name used when none is configured.
const DefaultIncidentSheet = "AnalysisSheet"

// Options configures a Processor. Zero values select defaults.
type Options struct {
	IncidentSheet string
	Regions       []string
	Resolver      *region.Resolver
	Profile       *schema.Profile
	Engine        *reconcile.Engine
}

// Processor runs the load, resolve, merge and metrics stages. It holds no
// per-invocation state and is safe for concurrent use.
type Processor struct {
	incidentSheet string
	regions       []string
	resolver      *region.Resolver
	profile       *schema.Profile
	engine        *reconcile.Engine
}

// New creates a Processor.
func New(opts Options) *Processor {
	p := &Processor{
		incidentSheet: opts.IncidentSheet,
		regions:       opts.Regions,
		resolver:      opts.Resolver,
		profile:       opts.Profile,
		engine:        opts.Engine,
	}
	if p.incidentSheet == "" {
		p.incidentSheet = DefaultIncidentSheet
	}
	if len(p.regions) == 0 {
		p.regions = append([]string(nil), reconcile.DefaultRegionCodes...)
	}
	if p.resolver == nil {
		p.resolver = region.NewResolver("", "", "")
	}
	if p.profile == nil {
		p.profile = schema.Default()
	}
	if p.engine == nil {
		p.engine = reconcile.NewEngine(nil, nil)
	}
	return p
}

// Regions returns the configured region codes.
func (p *Processor) Regions() []string {
	return append([]string(nil), p.regions...)
}

// DefaultRegion returns the region code used when a caller passes none.
func (p *Processor) DefaultRegion() string {
	return p.resolver.DefaultRegion
}

// Result is the outcome of one invocation.
type Result struct {
	Source      string            `json:"source"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Table       model.Table       `json:"table"`
	Resolution  region.Resolution `json:"resolution"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// Process reads src and reconciles it for regionCode. A missing source yields
// a nil result and an error matching ErrSourceNotFound; every other failure,
// panics included, comes back as *PipelineError.
func (p *Processor) Process(ctx context.Context, src source.Source, regionCode string) (*Result, error) {
	return p.run(ctx, src.Label(), func() ([]byte, error) { return src.Open(ctx) }, regionCode)
}

// ProcessBytes reconciles workbook content that has already been read.
func (p *Processor) ProcessBytes(ctx context.Context, label string, data []byte, regionCode string) (*Result, error) {
	return p.run(ctx, label, func() ([]byte, error) {
		if len(data) == 0 {
			return nil, eris.Wrapf(ErrSourceNotFound, "pipeline: empty workbook %q", label)
		}
		return data, nil
	}, regionCode)
}

func (p *Processor) run(ctx context.Context, label string, open func() ([]byte, error), regionCode string) (res *Result, err error) {
	log := zap.L().With(zap.String("source", label), zap.String("region", regionCode))
	stage := StageOpen

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: panic recovered", zap.String("stage", stage), zap.Any("panic", r))
			res = nil
			err = &PipelineError{Stage: stage, Err: eris.Errorf("panic: %v", r)}
		}
	}()

	trackStage := func(name string, fn func() error) error {
		stage = name
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &PipelineError{Stage: name, Err: ctxErr}
		}

		start := time.Now()
		fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if fnErr != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
			return &PipelineError{Stage: name, Err: fnErr}
		}
		log.Debug("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
		)
		return nil
	}

	var data []byte
	data, err = open()
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			log.Warn("pipeline: source not found", zap.Error(err))
			return nil, err
		}
		return nil, &PipelineError{Stage: StageOpen, Err: err}
	}

	result := &Result{Source: label}
	var (
		wb        *fetcher.Workbook
		incidents incidentSheet
		registry  registrySheet
		table     model.Table
	)

	if err = trackStage(StageWorkbook, func() error {
		var openErr error
		wb, openErr = fetcher.OpenXLSX(data)
		return openErr
	}); err != nil {
		return nil, err
	}

	if err = trackStage(StageResolve, func() error {
		result.Resolution = p.resolver.Resolve(wb.SheetNames(), regionCode)
		if w := result.Resolution.Warning(); w != "" {
			log.Warn("pipeline: registry fallback",
				zap.String("status", result.Resolution.Status),
				zap.String("sheet", result.Resolution.Sheet),
			)
			result.Warnings = append(result.Warnings, w)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err = trackStage(StageLoad, func() error {
		sheet, ok := p.incidentSheetName(wb)
		if !ok {
			return eris.Wrapf(ErrIncidentSheetMissing, "pipeline: sheet %q", p.incidentSheet)
		}
		rows, rowsErr := wb.Rows(sheet)
		if rowsErr != nil {
			return rowsErr
		}
		incidents = loadIncidents(sheet, rows, p.profile)

		if result.Resolution.Sheet != "" {
			regRows, regErr := wb.Rows(result.Resolution.Sheet)
			if regErr != nil {
				return regErr
			}
			registry = loadSites(result.Resolution.Sheet, regRows, p.profile)
		}

		for _, w := range append(incidents.warnings, registry.warnings...) {
			log.Warn("pipeline: schema drift", zap.String("detail", w))
			result.Warnings = append(result.Warnings, w)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err = trackStage(StageMerge, func() error {
		table = p.engine.Merge(incidents.incidents, registry.sites, registry.fields)
		table.IncidentFields = incidents.fields
		return nil
	}); err != nil {
		return nil, err
	}

	if err = trackStage(StageMetrics, func() error {
		table = p.engine.ComputeMetrics(table)
		return nil
	}); err != nil {
		return nil, err
	}

	result.Table = table
	log.Info("pipeline: complete",
		zap.Int("records", table.Len()),
		zap.Int("sites", len(registry.sites)),
		zap.String("registry_sheet", result.Resolution.Sheet),
	)
	return result, nil
}

// incidentSheetName finds the operations sheet, tolerating case and padding.
func (p *Processor) incidentSheetName(wb *fetcher.Workbook) (string, bool) {
	if wb.HasSheet(p.incidentSheet) {
		return p.incidentSheet, true
	}
	for _, name := range wb.SheetNames() {
		if strings.EqualFold(strings.TrimSpace(name), p.incidentSheet) {
			return name, true
		}
	}
	return "", false
}

// Inventory describes a workbook's sheets and how each configured region resolves.
type Inventory struct {
	Source        string                       `json:"source"`
	Sheets        []string                     `json:"sheets"`
	IncidentSheet string                       `json:"incident_sheet,omitempty"`
	Regions       map[string]region.Resolution `json:"regions"`
}

// Inspect lists the sheets of src without reconciling anything.
func (p *Processor) Inspect(ctx context.Context, src source.Source) (*Inventory, error) {
	data, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	wb, err := fetcher.OpenXLSX(data)
	if err != nil {
		return nil, &PipelineError{Stage: StageWorkbook, Err: err}
	}

	inv := &Inventory{
		Source:  src.Label(),
		Sheets:  wb.SheetNames(),
		Regions: make(map[string]region.Resolution, len(p.regions)),
	}
	if name, ok := p.incidentSheetName(wb); ok {
		inv.IncidentSheet = name
	}
	for _, code := range p.regions {
		res := p.resolver.Resolve(inv.Sheets, code)
		inv.Regions[res.Requested] = res
	}
	return inv, nil
}
