package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/domain"
	"ccdsync/internal/handler"
	"ccdsync/internal/service"
	"ccdsync/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newComparisonHandler() (*handler.ComparisonHandler, *mocks.MockComparisonService) {
	mockSvc := new(mocks.MockComparisonService)
	return handler.NewComparisonHandler(mockSvc), mockSvc
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Create ---

func TestComparisonHandler_Create_Success(t *testing.T) {
	h, mockSvc := newComparisonHandler()

	report := &domain.RunReport{
		Run:     domain.ComparisonRun{ID: uuid.New(), Mode: domain.ModeOnline, TotalPairs: 1, Identical: 1},
		Records: []domain.ComparisonRecord{{CCDCode: "ACN", OverallIdentical: domain.VerdictIdentical}},
	}
	mockSvc.On("Compare", mock.Anything, mock.MatchedBy(func(in *service.CompareInput) bool {
		return in.Mode == domain.ModeOnline && len(in.Codes) == 2 && in.Limit == 1
	})).Return(report, nil)

	body, _ := json.Marshal(map[string]interface{}{"codes": []string{"ACN", "BEN"}, "limit": 1})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/comparisons", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), `"ccd_code":"ACN"`)
	mockSvc.AssertExpectations(t)
}

func TestComparisonHandler_Create_MissingCodes(t *testing.T) {
	h, mockSvc := newComparisonHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/comparisons", strings.NewReader(`{"limit":3}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w).Error.Code)
	mockSvc.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything)
}

func TestComparisonHandler_Create_TooManyCodes(t *testing.T) {
	h, _ := newComparisonHandler()

	codes := make([]string, handler.MaxCodesPerRequest+1)
	for i := range codes {
		codes[i] = "ACN"
	}
	body, _ := json.Marshal(map[string]interface{}{"codes": codes})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/comparisons", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TOO_MANY_CODES", decode(t, w).Error.Code)
}

func TestComparisonHandler_Create_RateLimited(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	mockSvc.On("Compare", mock.Anything, mock.Anything).Return(nil, domain.ErrRateLimited)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/comparisons", strings.NewReader(`{"codes":["ACN"]}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

// --- Runs ---

func TestComparisonHandler_ListRuns(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	runs := []domain.ComparisonRun{{ID: uuid.New()}, {ID: uuid.New()}}
	mockSvc.On("ListRuns", mock.Anything, 10, 5).Return(runs, 12, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs?offset=10&limit=5", http.NoBody)

	h.ListRuns(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, handler.PagMeta{Total: 12, Offset: 10, Limit: 5}, *resp.Meta)
}

func TestComparisonHandler_ListRuns_DatabaseDisabled(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	mockSvc.On("ListRuns", mock.Anything, 0, 20).Return(nil, 0, domain.ErrDatabaseDisabled)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs?limit=1000", http.NoBody)

	h.ListRuns(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DATABASE_DISABLED", decode(t, w).Error.Code)
}

func TestComparisonHandler_GetRun(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	runID := uuid.New()
	mockSvc.On("GetRun", mock.Anything, runID).Return(&domain.ComparisonRun{ID: runID, Status: domain.RunStatusCompleted}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/"+runID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.GetRun(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
}

func TestComparisonHandler_GetRun_InvalidID(t *testing.T) {
	h, _ := newComparisonHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/nope", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.GetRun(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decode(t, w).Error.Code)
}

func TestComparisonHandler_GetRun_NotFound(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	runID := uuid.New()
	mockSvc.On("GetRun", mock.Anything, runID).Return(nil, domain.ErrRunNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/"+runID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.GetRun(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RUN_NOT_FOUND", decode(t, w).Error.Code)
}

func TestComparisonHandler_ListRecords_Filter(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	runID := uuid.New()
	want := domain.RecordFilter{Overall: domain.VerdictDifferent, Offset: 0, Limit: 50}
	mockSvc.On("ListRecords", mock.Anything, runID, want).
		Return([]domain.ComparisonRecord{{CCDCode: "BEN", OverallIdentical: domain.VerdictDifferent}}, 1, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/x/records?overall=n&limit=50", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.ListRecords(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ccd_code":"BEN"`)
	mockSvc.AssertExpectations(t)
}

func TestComparisonHandler_ListRecords_BadFilter(t *testing.T) {
	h, _ := newComparisonHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/x/records?overall=maybe", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

	h.ListRecords(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILTER", decode(t, w).Error.Code)
}

func TestComparisonHandler_ListMissing(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	runID := uuid.New()
	mockSvc.On("ListMissing", mock.Anything, runID).
		Return([]domain.MissingFile{{CCDCode: "TWO", MissingFromSet1: true}}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/x/missing", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.ListMissing(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"missing_from_set1":true`)
}

func TestComparisonHandler_Analysis(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	runID := uuid.New()
	mockSvc.On("AnalyzeRun", mock.Anything, runID).Return(&domain.Analysis{
		TotalEntries:    3,
		OutdatedEntries: []domain.OutdatedEntry{{CCDCode: "BEN", DaysBehind: 30}},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/x/analysis", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.Analysis(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_entries":3`)
	assert.Contains(t, w.Body.String(), `"days_behind":30`)
}

func TestComparisonHandler_Export(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	runID := uuid.New()
	mockSvc.On("ExportRun", mock.Anything, runID).Return(
		&domain.ComparisonRun{ID: runID, Mode: domain.ModeLocal},
		[]domain.ComparisonRecord{
			{CCDCode: "ACN", OverallIdentical: domain.VerdictIdentical},
			{CCDCode: "BEN", OverallIdentical: domain.VerdictDifferent},
		}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/x/export", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ccdsync_local_"+runID.String()[:8])
	body := strings.TrimPrefix(w.Body.String(), string([]byte{0xEF, 0xBB, 0xBF}))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ccd_code,name_identical"))
	assert.True(t, strings.HasPrefix(lines[1], "ACN,"))
	assert.True(t, strings.HasPrefix(lines[2], "BEN,"))
}

func TestComparisonHandler_Export_DatabaseDisabled(t *testing.T) {
	h, mockSvc := newComparisonHandler()
	runID := uuid.New()
	mockSvc.On("ExportRun", mock.Anything, runID).Return(nil, nil, domain.ErrDatabaseDisabled)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/x/export", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.Export(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DATABASE_DISABLED", decode(t, w).Error.Code)
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrRunNotFound, http.StatusNotFound, "RUN_NOT_FOUND"},
		{domain.ErrInvalidMode, http.StatusBadRequest, "INVALID_MODE"},
		{domain.ErrNoCodes, http.StatusBadRequest, "NO_CODES"},
		{domain.ErrUnsupportedCode, http.StatusBadRequest, "UNSUPPORTED_CODE"},
		{domain.ErrDocumentUnavailable, http.StatusBadGateway, "DOCUMENT_UNAVAILABLE"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code, _ := handler.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
