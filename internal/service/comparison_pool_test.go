package service_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/domain"
	"ccdsync/internal/service"
	"ccdsync/internal/source"
	"ccdsync/mocks"
)

func sortOutcomes(out []domain.PairOutcome) {
	sort.Slice(out, func(i, j int) bool { return out[i].Pair.Code < out[j].Pair.Code })
}

func TestComparisonPool_Run(t *testing.T) {
	f := newFixture(t)
	dates := new(mocks.MockCommitDateResolver)
	dates.On("CommitDate", mock.Anything, "ACN.cif").Return("2023-05-06", nil)
	dates.On("CommitDate", mock.Anything, "BEN.cif").Return("", source.NewRateLimitError("github", errors.New("limited"), 60))

	pool := service.NewComparisonPool(f.engine, f.docs, f.set1, f.set2, dates, service.PoolConfig{Workers: 3})
	ps, err := service.DiscoverPairs(context.Background(), f.set1, f.set2)
	require.NoError(t, err)

	out := pool.Run(context.Background(), ps.Pairs)
	require.Len(t, out, 2)
	sortOutcomes(out)

	acn := out[0]
	require.NoError(t, acn.Err)
	assert.True(t, acn.Result.Overall())
	assert.Equal(t, "2011-06-04", acn.DateA)
	assert.Equal(t, "2023-05-06", acn.DateB)

	ben := out[1]
	require.NoError(t, ben.Err)
	assert.True(t, ben.Result.Units[domain.UnitName])
	assert.False(t, ben.Result.Units[domain.UnitAtom])
	assert.Equal(t, "", ben.DateB, "rate limited dates are left empty")

	rec := ben.Record(uuid.Nil)
	assert.Equal(t, domain.VerdictDifferent, rec.OverallIdentical)
	dates.AssertExpectations(t)
}

func TestComparisonPool_FetchFailureIsErrorRow(t *testing.T) {
	f := newFixture(t)
	pool := service.NewComparisonPool(f.engine, f.docs, f.set1, f.set2, nil, service.PoolConfig{})

	pairs := []domain.FilePair{{
		Code: "ZZZ",
		A:    domain.DocumentRef{Kind: domain.SourceLocal, Path: source.ArchivePath("ZZZ")},
		B:    domain.DocumentRef{Kind: domain.SourceLocal, Path: source.MonomerPath("ZZZ")},
	}}
	out := pool.Run(context.Background(), pairs)
	require.Len(t, out, 1)
	assert.ErrorIs(t, out[0].Err, domain.ErrDocumentUnavailable)

	rec := out[0].Record(uuid.Nil)
	assert.True(t, rec.IsError())
	for _, u := range domain.AllUnits {
		assert.Equal(t, domain.VerdictError, rec.Verdict(u))
	}
}

func TestComparisonPool_CanceledContext(t *testing.T) {
	f := newFixture(t)
	pool := service.NewComparisonPool(f.engine, f.docs, f.set1, f.set2, nil, service.PoolConfig{Workers: 2})
	ps, err := service.DiscoverPairs(context.Background(), f.set1, f.set2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := pool.Run(ctx, ps.Pairs)
	assert.LessOrEqual(t, len(out), len(ps.Pairs))
}
