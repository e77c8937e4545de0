package source

import (
	"context"
	"errors"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siterisk/internal/fetcher"
)

type stubFetcher struct {
	body string
	err  error
}

func (s stubFetcher) Download(_ context.Context, _ string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestFile_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("xlsx"), 0o644))

	data, err := File{Path: path}.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "xlsx", string(data))
	assert.Equal(t, "file:"+path, File{Path: path}.Label())
}

func TestFile_NotFound(t *testing.T) {
	_, err := File{Path: filepath.Join(t.TempDir(), "missing.xlsx")}.Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = File{}.Open(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBuffer_Open(t *testing.T) {
	b := Buffer{Name: "weekly.xlsx", Data: []byte("abc")}
	data, err := b.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.Equal(t, "upload:weekly.xlsx", b.Label())

	_, err = Buffer{Name: "empty.xlsx"}.Open(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemote_Open(t *testing.T) {
	r := Remote{URL: "https://files.example.com/ops.xlsx", Fetcher: stubFetcher{body: "remote"}}
	data, err := r.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "remote", string(data))
}

func TestRemote_NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 404", eris.Wrap(&fetcher.StatusError{Code: 404, URL: "u"}, "download"), true},
		{"http 410", &fetcher.StatusError{Code: 410, URL: "u"}, true},
		{"http 500", &fetcher.StatusError{Code: 500, URL: "u"}, false},
		{"ftp 550", eris.Wrap(&textproto.Error{Code: 550, Msg: "no such file"}, "ftp retrieve"), true},
		{"network", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Remote{URL: "https://x/ops.xlsx", Fetcher: stubFetcher{err: tt.err}}.Open(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.Is(err, ErrNotFound))
		})
	}
}

func TestRemote_EmptyBody(t *testing.T) {
	_, err := Remote{URL: "ftp://x/ops.xlsx", Fetcher: stubFetcher{}}.Open(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = Remote{URL: "ftp://x/ops.xlsx"}.Open(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestLocate(t *testing.T) {
	f := stubFetcher{}

	src := Locate("https://files.example.com/ops.xlsx", "/data/default.xlsx", f)
	assert.IsType(t, Remote{}, src)

	src = Locate("  ", "/data/default.xlsx", f)
	assert.Equal(t, File{Path: "/data/default.xlsx"}, src)

	src = Locate("./ops.xlsx", "", f)
	assert.Equal(t, File{Path: "./ops.xlsx"}, src)
}
