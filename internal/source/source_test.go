package source_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/cache"
	"ccdsync/internal/domain"
	"ccdsync/internal/source"
)

func TestWWPDBPath(t *testing.T) {
	p, err := source.WWPDBPath("ACN")
	require.NoError(t, err)
	assert.Equal(t, "N/ACN/ACN.cif", p)

	p, err = source.WWPDBPath("A1AAB")
	require.NoError(t, err)
	assert.Equal(t, "B/A1AAB/A1AAB.cif", p)

	_, err = source.WWPDBPath("AB")
	assert.ErrorIs(t, err, domain.ErrUnsupportedCode)
}

func TestArchivePath(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"ACN", "N/AC/ACN.cif"},
		{"AB", "B/0A/AB.cif"},
		{"A", "A/00/A.cif"},
		{"A1AAB", "B/A1AAB/A1AAB.cif"},
		{"ABCD", "ABCD.cif"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, source.ArchivePath(tt.code))
		})
	}
}

func TestMonomerPathAndNames(t *testing.T) {
	assert.Equal(t, "o/ONS.cif", source.MonomerPath("ONS"))
	assert.Equal(t, "0/000.cif", source.MonomerPath("000"))
	assert.Equal(t, "ONS", source.CodeFromPath("o/ONS.cif"))
	assert.True(t, source.IsComponentFile("x/ABC.CIF"))
	assert.False(t, source.IsComponentFile("README.md"))
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{
		"N/ACN/ACN.cif", "N/AC/ACN.cif", "N/ACN.cif", "ACN/ACN.cif", "ACN.cif",
	}, source.Set1Candidates("ACN"))
	assert.Equal(t, []string{
		"a/ACN.cif", "A/ACN.cif", "N/ACN/ACN.cif", "N/ACN.cif", "ACN/ACN.cif", "ACN.cif",
	}, source.Set2Candidates("ACN"))
	assert.Nil(t, source.Set1Candidates(""))
}

func TestRateLimitError(t *testing.T) {
	err := source.NewRateLimitError("github", errors.New("403"), 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
	assert.True(t, source.IsRateLimited(err))
	assert.True(t, source.IsRateLimited(fmt.Errorf("wrapped: %w", err)))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.False(t, source.IsRateLimited(errors.New("other")))

	assert.Equal(t, 30, source.ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, source.ParseRetryAfterHeader("soon"))

	now := time.Unix(1000, 0)
	assert.Equal(t, 60, source.ParseRateLimitReset("1060", now))
	assert.Equal(t, 0, source.ParseRateLimitReset("900", now))
	assert.Equal(t, 0, source.ParseRateLimitReset("", now))
}

func TestFormatCommitDate(t *testing.T) {
	assert.Equal(t, "2023-05-01", source.FormatCommitDate("2023-05-01T12:30:00Z"))
	assert.Equal(t, "2023-05-01", source.FormatCommitDate("2023-05-02T01:00:00+02:00"))
	assert.Empty(t, source.FormatCommitDate(""))
	assert.Empty(t, source.FormatCommitDate("yesterday"))
}

type stubSource struct {
	name    string
	data    map[string]string
	err     error
	calls   int
	listing []string
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) List(context.Context) ([]string, error) {
	if s.listing == nil {
		return nil, domain.ErrListingUnsupported
	}
	return s.listing, nil
}

func (s *stubSource) PathFor(code string) (string, error) { return source.MonomerPath(code), nil }

func (s *stubSource) Fetch(_ context.Context, path string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	text, ok := s.data[path]
	if !ok {
		return nil, domain.ErrDocumentUnavailable
	}
	return []byte(text), nil
}

func TestFallbackSource_UsesNextOnFailure(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("boom")}
	mirror := &stubSource{name: "mirror", data: map[string]string{"a/ACN.cif": "data_ACN"}}
	fb := source.NewFallbackSource(primary, mirror)

	data, err := fb.Fetch(context.Background(), "a/ACN.cif")
	require.NoError(t, err)
	assert.Equal(t, "data_ACN", string(data))
	assert.Equal(t, "primary|mirror", fb.Name())
}

func TestFallbackSource_OpensCircuitOnRateLimit(t *testing.T) {
	primary := &stubSource{name: "primary", err: source.NewRateLimitError("primary", errors.New("429"), 120)}
	mirror := &stubSource{name: "mirror", data: map[string]string{"a/ACN.cif": "x"}}
	fb := source.NewFallbackSource(primary, mirror)

	_, err := fb.Fetch(context.Background(), "a/ACN.cif")
	require.NoError(t, err)
	_, err = fb.Fetch(context.Background(), "a/ACN.cif")
	require.NoError(t, err)

	assert.Equal(t, 1, primary.calls, "primary skipped while its circuit is open")
	assert.Equal(t, 2, mirror.calls)
}

func TestFallbackSource_AllRateLimited(t *testing.T) {
	primary := &stubSource{name: "primary", err: source.NewRateLimitError("primary", errors.New("429"), 30)}
	fb := source.NewFallbackSource(primary)

	_, err := fb.Fetch(context.Background(), "a/ACN.cif")
	var rl *source.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "all", rl.Source)
}

func TestFallbackSource_AllFailed(t *testing.T) {
	fb := source.NewFallbackSource(&stubSource{name: "a"}, &stubSource{name: "b"})
	_, err := fb.Fetch(context.Background(), "x.cif")
	assert.ErrorIs(t, err, domain.ErrDocumentUnavailable)
}

func TestFallbackSource_List(t *testing.T) {
	fb := source.NewFallbackSource(&stubSource{name: "http"}, &stubSource{name: "s3", listing: []string{"a/ACN.cif"}})
	paths, err := fb.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a/ACN.cif"}, paths)

	_, err = source.NewFallbackSource(&stubSource{name: "http"}).List(context.Background())
	assert.ErrorIs(t, err, domain.ErrListingUnsupported)
}

type stubResolver struct {
	dates      map[string]string
	err        error
	batchCalls [][]string
	calls      []string
}

func (r *stubResolver) CommitDates(_ context.Context, names []string) (map[string]string, error) {
	r.batchCalls = append(r.batchCalls, names)
	out := map[string]string{}
	for _, n := range names {
		if d, ok := r.dates[n]; ok {
			out[n] = d
		}
	}
	return out, r.err
}

func (r *stubResolver) CommitDate(_ context.Context, name string) (string, error) {
	r.calls = append(r.calls, name)
	if r.err != nil {
		return "", r.err
	}
	return r.dates[name], nil
}

func TestCachedResolver_SingleLookupsAreRemembered(t *testing.T) {
	ctx := context.Background()
	stub := &stubResolver{dates: map[string]string{"ACN.cif": "2024-01-01"}}
	r := source.NewCachedResolver(stub, cache.NewMemoryDates(), "repo")

	for i := 0; i < 2; i++ {
		d, err := r.CommitDate(ctx, "ACN.cif")
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01", d)
		d, err = r.CommitDate(ctx, "ZZZ.cif")
		require.NoError(t, err)
		assert.Empty(t, d)
	}
	assert.Equal(t, []string{"ACN.cif", "ZZZ.cif"}, stub.calls)
}

func TestCachedResolver_RateLimitIsNotCached(t *testing.T) {
	ctx := context.Background()
	stub := &stubResolver{err: source.NewRateLimitError("github", errors.New("403"), 0)}
	dates := cache.NewMemoryDates()
	r := source.NewCachedResolver(stub, dates, "repo")

	_, err := r.CommitDate(ctx, "ACN.cif")
	assert.True(t, source.IsRateLimited(err))
	assert.Equal(t, 0, dates.Len())
}

func TestCachedResolver_BatchSkipsCachedNames(t *testing.T) {
	ctx := context.Background()
	stub := &stubResolver{dates: map[string]string{"A.cif": "2020-01-01", "B.cif": "2021-01-01"}}
	dates := cache.NewMemoryDates()
	require.NoError(t, dates.Put(ctx, "repo:A.cif", "2019-12-31"))
	r := source.NewCachedResolver(stub, dates, "repo")

	got, err := r.CommitDates(ctx, []string{"A.cif", "B.cif", "C.cif"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"A.cif": "2019-12-31", "B.cif": "2021-01-01"}, got)
	require.Len(t, stub.batchCalls, 1)
	assert.Equal(t, []string{"B.cif", "C.cif"}, stub.batchCalls[0])

	d, found := r.Cached(ctx, "B.cif")
	assert.True(t, found)
	assert.Equal(t, "2021-01-01", d)
	_, found = r.Cached(ctx, "C.cif")
	assert.False(t, found, "batch misses stay unresolved")
}
