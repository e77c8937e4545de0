package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote workbooks.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Router dispatches downloads to a fetcher by URL scheme.
type Router struct {
	HTTP     Fetcher
	FTP      Fetcher
	Breakers *Breakers // nil disables per-host breakers
}

// NewRouter creates a Router backed by the default HTTP and FTP fetchers.
func NewRouter(httpOpts HTTPOptions, ftpOpts FTPOptions) *Router {
	return &Router{
		HTTP:     NewHTTPFetcher(httpOpts),
		FTP:      NewFTPFetcher(ftpOpts),
		Breakers: NewBreakers(BreakerOptions{}),
	}
}

// Download fetches rawURL through the fetcher registered for its scheme.
func (r *Router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}

	var f Fetcher
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		f = r.HTTP
	case "ftp":
		f = r.FTP
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
	if f == nil {
		return nil, eris.Errorf("fetcher: no fetcher configured for %q", u.Scheme)
	}
	if r.Breakers == nil {
		return f.Download(ctx, rawURL)
	}

	if err := r.Breakers.allow(u.Host); err != nil {
		return nil, eris.Wrapf(err, "fetcher: %s", u.Host)
	}
	rc, err := f.Download(ctx, rawURL)
	r.Breakers.record(u.Host, err)
	return rc, err
}

// IsRemote reports whether s looks like a URL one of the fetchers can serve.
func IsRemote(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "ftp://")
}
