// Package region picks the site-registry sheet for a requested region.
package region

import (
	"fmt"
	"strings"
)

// Resolution status values.
const (
	StatusExact           = "exact"
	StatusDefaultFallback = "default_fallback"
	StatusPrefixFallback  = "prefix_fallback"
	StatusMissing         = "missing"
)

// Defaults mirror the workbook layout the dataset was originally built around.
const (
	DefaultTemplate = "Sonar_%s"
	DefaultPrefix   = "Sonar"
	DefaultRegion   = "KZN"
)

// Resolution records which registry sheet serves a region and how it was found.
type Resolution struct {
	Requested string `json:"requested"`
	Sheet     string `json:"sheet,omitempty"`
	Status    string `json:"status"`
}

// Degraded reports whether the registry is not the requested region's own sheet.
func (r Resolution) Degraded() bool {
	return r.Status != StatusExact
}

// Warning describes a degraded resolution for the caller; "" when exact.
func (r Resolution) Warning() string {
	switch r.Status {
	case StatusExact:
		return ""
	case StatusDefaultFallback, StatusPrefixFallback:
		return fmt.Sprintf("no site registry for region %s; using %q, so site geography may belong to another region",
			r.Requested, r.Sheet)
	default:
		return fmt.Sprintf("no site registry sheet found for region %s; incidents are unmatched", r.Requested)
	}
}

// Resolver maps region codes to registry sheet names.
type Resolver struct {
	Template      string // fmt template taking the region code, e.g. "Sonar_%s"
	Prefix        string // substring that marks any registry sheet
	DefaultRegion string
}

// NewResolver returns a resolver with the built-in defaults for empty arguments.
func NewResolver(template, prefix, defaultRegion string) *Resolver {
	if template == "" {
		template = DefaultTemplate
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if defaultRegion == "" {
		defaultRegion = DefaultRegion
	}
	return &Resolver{
		Template:      template,
		Prefix:        prefix,
		DefaultRegion: strings.ToUpper(strings.TrimSpace(defaultRegion)),
	}
}

// SheetFor returns the registry sheet name for a region code.
func (r *Resolver) SheetFor(regionCode string) string {
	return fmt.Sprintf(r.Template, strings.ToUpper(strings.TrimSpace(regionCode)))
}

// Resolve finds the registry sheet for regionCode among sheetNames:
//  1. the region's own sheet
//  2. the default region's sheet
//  3. the first sheet whose name contains the registry prefix
//  4. nothing (StatusMissing)
//
// Fallbacks are reported through the returned Resolution, never hidden.
func (r *Resolver) Resolve(sheetNames []string, regionCode string) Resolution {
	requested := strings.ToUpper(strings.TrimSpace(regionCode))
	if requested == "" {
		requested = r.DefaultRegion
	}
	res := Resolution{Requested: requested}

	if name, ok := findSheet(sheetNames, r.SheetFor(requested)); ok {
		res.Sheet = name
		res.Status = StatusExact
		return res
	}

	if requested != r.DefaultRegion {
		if name, ok := findSheet(sheetNames, r.SheetFor(r.DefaultRegion)); ok {
			res.Sheet = name
			res.Status = StatusDefaultFallback
			return res
		}
	}

	prefix := strings.ToLower(r.Prefix)
	for _, name := range sheetNames {
		if strings.Contains(strings.ToLower(name), prefix) {
			res.Sheet = name
			res.Status = StatusPrefixFallback
			return res
		}
	}

	res.Status = StatusMissing
	return res
}

// findSheet matches a sheet name exactly, then case-insensitively.
func findSheet(sheetNames []string, want string) (string, bool) {
	for _, name := range sheetNames {
		if name == want {
			return name, true
		}
	}
	for _, name := range sheetNames {
		if strings.EqualFold(strings.TrimSpace(name), want) {
			return name, true
		}
	}
	return "", false
}
