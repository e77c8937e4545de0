package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/pipeline"
	"github.com/sells-group/siterisk/internal/reconcile"
	"github.com/sells-group/siterisk/internal/region"
	"github.com/sells-group/siterisk/internal/report"
	"github.com/sells-group/siterisk/internal/source"
)

// Report views selectable by the {view} path segment.
const (
	ViewTable     = ""
	ViewHitList   = "hitlist"
	ViewHitListX  = "hitlist.xlsx"
	ViewSummary   = "summary"
	ViewSites     = "sites.geojson"
	ViewOffenders = "offenders"
	ViewCauses    = "causes"
	ViewOptions   = "options"
)

// tableResponse is the body of the default table view.
type tableResponse struct {
	Source      string            `json:"source"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Resolution  region.Resolution `json:"resolution"`
	Warnings    []string          `json:"warnings,omitempty"`
	Filter      reconcile.Filter  `json:"filter"`
	Table       model.Table       `json:"table"`
}

type causesResponse struct {
	Available bool               `json:"available"`
	Causes    []report.CauseNode `json:"causes"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}

	regionCode := r.FormValue("region")
	s.serveReport(w, r, source.Buffer{Name: header.Filename, Data: data}, regionCode)
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	if s.opts.DefaultSource == nil {
		writeError(w, http.StatusNotFound, "no default workbook configured")
		return
	}
	s.serveReport(w, r, s.opts.DefaultSource, r.URL.Query().Get("region"))
}

func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, src source.Source, regionCode string) {
	view := chi.URLParam(r, "view")
	if !knownView(view) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown view %q", view))
		return
	}

	res, err := s.reporter.Run(r.Context(), src, regionCode)
	if err != nil {
		writePipelineError(w, src.Label(), err)
		return
	}
	if res.Fingerprint != "" {
		w.Header().Set("X-Report-Fingerprint", res.Fingerprint)
	}

	q := r.URL.Query()
	filter := filterFromQuery(q)
	table := reconcile.Apply(res.Table, filter)

	switch view {
	case ViewTable:
		writeJSON(w, http.StatusOK, tableResponse{
			Source:      res.Source,
			Fingerprint: res.Fingerprint,
			Resolution:  res.Resolution,
			Warnings:    res.Warnings,
			Filter:      filter,
			Table:       table,
		})
	case ViewHitList:
		limit := s.opts.HitListLength
		if v := q.Get("limit"); v != "" {
			limit = cast.ToInt(v)
		}
		writeJSON(w, http.StatusOK, report.BuildHitList(table, limit))
	case ViewHitListX:
		s.writeHitListXLSX(w, table, res.Resolution.Requested)
	case ViewSummary:
		writeJSON(w, http.StatusOK, report.Summarize(table))
	case ViewSites:
		data, err := report.MarshalSitePoints(table)
		if err != nil {
			zap.L().Error("server: encode site points", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "encode site points")
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(data)
	case ViewOffenders:
		writeJSON(w, http.StatusOK, report.TopOffenders(table, cast.ToInt(q.Get("n"))))
	case ViewCauses:
		nodes, ok := report.RootCauses(table)
		writeJSON(w, http.StatusOK, causesResponse{Available: ok, Causes: nodes})
	case ViewOptions:
		writeJSON(w, http.StatusOK, reconcile.Options(res.Table))
	}
}

func (s *Server) writeHitListXLSX(w http.ResponseWriter, t model.Table, regionCode string) {
	var buf bytes.Buffer
	if err := report.WriteHitList(&buf, t, s.opts.Export); err != nil {
		zap.L().Error("server: export hit list", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export hit list")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.opts.Export.FileName(regionCode)))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.opts.Cache.Stats(r.Context())
	if err != nil {
		zap.L().Error("server: cache stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCachePurge(w http.ResponseWriter, r *http.Request) {
	n, err := s.opts.Cache.Purge(r.Context())
	if err != nil {
		zap.L().Error("server: cache purge", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache purge failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("source")
	if label == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	n, err := s.opts.Cache.Invalidate(r.Context(), label)
	if err != nil {
		zap.L().Error("server: cache invalidate", zap.String("source", label), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache invalidate failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func knownView(v string) bool {
	switch v {
	case ViewTable, ViewHitList, ViewHitListX, ViewSummary, ViewSites, ViewOffenders, ViewCauses, ViewOptions:
		return true
	}
	return false
}

// filterFromQuery reads filter lists from repeated or comma-separated params.
func filterFromQuery(q url.Values) reconcile.Filter {
	return reconcile.Filter{
		Periods:      listParam(q, "period"),
		Technologies: listParam(q, "technology"),
		Counties:     listParam(q, "county"),
		Priorities:   listParam(q, "priority"),
		CriticalOnly: cast.ToBool(q.Get("critical")),
	}
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// writePipelineError maps a run failure to a status code. Missing workbooks
// are 404, unreadable or malformed workbooks 422, anything else 500.
func writePipelineError(w http.ResponseWriter, label string, err error) {
	if errors.Is(err, pipeline.ErrSourceNotFound) {
		writeError(w, http.StatusNotFound, "workbook not found")
		return
	}

	status := http.StatusInternalServerError
	var pe *pipeline.PipelineError
	if errors.As(err, &pe) && (pe.Stage == pipeline.StageWorkbook || pe.Stage == pipeline.StageLoad) {
		status = http.StatusUnprocessableEntity
	}
	zap.L().Error("server: report failed", zap.String("source", label), zap.Int("status", status), zap.Error(err))
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
