// Package source obtains raw workbook bytes from a path, an upload buffer or a remote URL.
package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siterisk/internal/fetcher"
)

// ErrNotFound is returned when a source has nothing to read: a missing file,
// an empty upload or a remote resource that does not exist.
var ErrNotFound = errors.New("source not found")

// maxRemoteBytes bounds how much a remote source may deliver.
const maxRemoteBytes = 256 << 20

// Source is one caller-supplied workbook.
type Source interface {
	// Label identifies the source across invocations, e.g. a path or upload name.
	// Re-reading the same label with new content replaces earlier cached results.
	Label() string
	// Open returns the full workbook content.
	Open(ctx context.Context) ([]byte, error)
}

// File reads a workbook from the local filesystem.
type File struct {
	Path string
}

// Label returns the cleaned path.
func (f File) Label() string {
	if f.Path == "" {
		return ""
	}
	return "file:" + filepath.Clean(f.Path)
}

// Open reads the file.
func (f File) Open(_ context.Context) ([]byte, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, eris.Wrap(ErrNotFound, "source: no path given")
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrNotFound, "source: %s", f.Path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", f.Path)
	}
	return data, nil
}

// Buffer is an in-memory workbook, typically an HTTP upload.
type Buffer struct {
	Name string
	Data []byte
}

// Label returns the upload name.
func (b Buffer) Label() string {
	return "upload:" + b.Name
}

// Open returns the buffered bytes. An empty buffer counts as no source.
func (b Buffer) Open(_ context.Context) ([]byte, error) {
	if len(b.Data) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "source: empty upload %q", b.Name)
	}
	return b.Data, nil
}

// Remote downloads a workbook over HTTP(S) or FTP.
type Remote struct {
	URL     string
	Fetcher fetcher.Fetcher
}

// Label returns the URL.
func (r Remote) Label() string {
	return "remote:" + r.URL
}

// Open downloads the workbook.
func (r Remote) Open(ctx context.Context) ([]byte, error) {
	if r.Fetcher == nil {
		return nil, eris.New("source: remote source has no fetcher")
	}
	body, err := r.Fetcher.Download(ctx, r.URL)
	if err != nil {
		if remoteNotFound(err) {
			return nil, eris.Wrapf(ErrNotFound, "source: %s", r.URL)
		}
		return nil, eris.Wrapf(err, "source: download %s", r.URL)
	}
	defer body.Close() //nolint:errcheck

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, maxRemoteBytes+1))
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", r.URL)
	}
	if n > maxRemoteBytes {
		return nil, eris.Errorf("source: %s exceeds %d bytes", r.URL, maxRemoteBytes)
	}
	if n == 0 {
		return nil, eris.Wrapf(ErrNotFound, "source: %s is empty", r.URL)
	}
	return buf.Bytes(), nil
}

func remoteNotFound(err error) bool {
	var se *fetcher.StatusError
	if errors.As(err, &se) {
		return se.NotFound()
	}
	var te *textproto.Error
	if errors.As(err, &te) {
		return te.Code == 550 // file unavailable
	}
	return false
}

// Locate returns a Remote source for URLs and a File source otherwise.
// An empty location falls back to defaultPath.
func Locate(location, defaultPath string, f fetcher.Fetcher) Source {
	location = strings.TrimSpace(location)
	if location == "" {
		location = defaultPath
	}
	if fetcher.IsRemote(location) {
		return Remote{URL: location, Fetcher: f}
	}
	return File{Path: location}
}
