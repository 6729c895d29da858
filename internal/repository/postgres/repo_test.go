package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/config"
	"ccdsync/internal/domain"
)

func TestBuildRecordInsert(t *testing.T) {
	runID := uuid.New()
	recs := []domain.ComparisonRecord{
		{RunID: runID, CCDCode: "ACN", OverallIdentical: domain.VerdictIdentical},
		{RunID: runID, CCDCode: "BEN", OverallIdentical: domain.VerdictDifferent},
	}

	query, args := buildRecordInsert(recs)

	assert.Contains(t, query, "INSERT INTO comparison_records")
	assert.Contains(t, query, "($14, $15,")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(query), "$26)"))
	require.Len(t, args, 2*recordColumns)
	assert.Equal(t, "BEN", args[recordColumns+2])
	assert.NotEqual(t, uuid.Nil, recs[0].ID, "ids are assigned")
	assert.False(t, recs[1].CreatedAt.IsZero())
}

func TestBuildRecordWhere(t *testing.T) {
	runID := uuid.New()

	clause, args := buildRecordWhere(runID, domain.RecordFilter{})
	assert.Equal(t, "WHERE run_id = $1", clause)
	assert.Equal(t, []interface{}{runID}, args)

	clause, args = buildRecordWhere(runID, domain.RecordFilter{Overall: domain.VerdictDifferent})
	assert.Equal(t, "WHERE run_id = $1 AND overall_identical = $2", clause)
	assert.Equal(t, []interface{}{runID, domain.VerdictDifferent}, args)
}

func TestOpen_Disabled(t *testing.T) {
	_, err := Open(context.Background(), &config.DBConfig{})
	assert.ErrorIs(t, err, domain.ErrDatabaseDisabled)
}
