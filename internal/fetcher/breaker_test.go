package fetcher

import (
	"context"
	"errors"
	"io"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFetcher struct {
	calls int
	err   error
}

func (f *failingFetcher) Download(_ context.Context, _ string) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader("ok")), nil
}

func newTestBreakers(threshold int) (*Breakers, *time.Time) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	b := NewBreakers(BreakerOptions{Threshold: threshold, Cooldown: time.Minute})
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakers_OpensAfterThreshold(t *testing.T) {
	b, now := newTestBreakers(2)
	f := &failingFetcher{err: errors.New("connection refused")}
	r := &Router{HTTP: f, Breakers: b}
	ctx := context.Background()

	for range 2 {
		_, err := r.Download(ctx, "https://files.example.com/ops.xlsx")
		require.Error(t, err)
	}
	assert.Equal(t, BreakerOpen, b.State("files.example.com"))

	_, err := r.Download(ctx, "https://files.example.com/ops.xlsx")
	require.ErrorIs(t, err, ErrHostUnavailable)
	assert.Equal(t, 2, f.calls)

	// Other hosts are unaffected.
	assert.Equal(t, BreakerClosed, b.State("other.example.com"))

	// After the cooldown a successful probe closes the breaker.
	*now = now.Add(time.Minute)
	assert.Equal(t, BreakerHalfOpen, b.State("files.example.com"))
	f.err = nil
	rc, err := r.Download(ctx, "https://files.example.com/ops.xlsx")
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, BreakerClosed, b.State("files.example.com"))
}

func TestBreakers_FailedProbeReopens(t *testing.T) {
	b, now := newTestBreakers(1)
	f := &failingFetcher{err: errors.New("timeout")}
	r := &Router{FTP: f, Breakers: b}
	ctx := context.Background()

	_, err := r.Download(ctx, "ftp://drop.example.com/ops.xlsx")
	require.Error(t, err)
	assert.Equal(t, BreakerOpen, b.State("drop.example.com"))

	*now = now.Add(2 * time.Minute)
	_, err = r.Download(ctx, "ftp://drop.example.com/ops.xlsx")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHostUnavailable)
	assert.Equal(t, BreakerOpen, b.State("drop.example.com"))
	assert.Equal(t, 2, f.calls)
}

func TestBreakers_HalfOpenAdmitsOneProbe(t *testing.T) {
	b, now := newTestBreakers(1)
	b.record("files.example.com", errors.New("connection refused"))
	require.Equal(t, BreakerOpen, b.State("files.example.com"))

	*now = now.Add(2 * time.Minute)
	require.NoError(t, b.allow("files.example.com"))
	for range 4 {
		assert.ErrorIs(t, b.allow("files.example.com"), ErrHostUnavailable)
	}
	assert.Equal(t, BreakerHalfOpen, b.State("files.example.com"))

	b.record("files.example.com", nil)
	assert.Equal(t, BreakerClosed, b.State("files.example.com"))
	for range 3 {
		assert.NoError(t, b.allow("files.example.com"))
	}
}

func TestBreakers_CancelledProbeFreesSlot(t *testing.T) {
	b, now := newTestBreakers(1)
	b.record("files.example.com", errors.New("timeout"))
	*now = now.Add(2 * time.Minute)

	require.NoError(t, b.allow("files.example.com"))
	b.record("files.example.com", context.Canceled)
	assert.Equal(t, BreakerHalfOpen, b.State("files.example.com"))

	require.NoError(t, b.allow("files.example.com"))
	assert.ErrorIs(t, b.allow("files.example.com"), ErrHostUnavailable)
}

func TestBreakers_NotFoundIsNotAFailure(t *testing.T) {
	b, _ := newTestBreakers(1)
	f := &failingFetcher{err: eris.Wrap(&StatusError{Code: 404, URL: "x"}, "download")}
	r := &Router{HTTP: f, Breakers: b}

	for range 3 {
		_, err := r.Download(context.Background(), "http://files.example.com/missing.xlsx")
		require.Error(t, err)
	}
	assert.Equal(t, BreakerClosed, b.State("files.example.com"))
	assert.Equal(t, 3, f.calls)
}

func TestCountsAsFailure(t *testing.T) {
	assert.False(t, countsAsFailure(nil))
	assert.False(t, countsAsFailure(context.Canceled))
	assert.False(t, countsAsFailure(eris.Wrap(&textproto.Error{Code: 550, Msg: "no such file"}, "ftp retr")))
	assert.True(t, countsAsFailure(&textproto.Error{Code: 421, Msg: "service not available"}))
	assert.True(t, countsAsFailure(&StatusError{Code: 503, URL: "x"}))
	assert.True(t, countsAsFailure(errors.New("connection reset")))
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half-open", BreakerHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}

func TestNewRouter_HasBreakers(t *testing.T) {
	r := NewRouter(HTTPOptions{}, FTPOptions{})
	assert.NotNil(t, r.Breakers)
	assert.NotNil(t, r.HTTP)
	assert.NotNil(t, r.FTP)
}
