package handler

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ccdsync/internal/csvexport"
	"ccdsync/internal/domain"
	"ccdsync/internal/service"
)

// MaxCodesPerRequest caps the codes one online comparison may request.
const MaxCodesPerRequest = 500

// ComparisonHandler handles comparison run endpoints.
type ComparisonHandler struct {
	comparisonService service.ComparisonService
}

// NewComparisonHandler creates a new ComparisonHandler.
func NewComparisonHandler(comparisonService service.ComparisonService) *ComparisonHandler {
	return &ComparisonHandler{comparisonService: comparisonService}
}

// Create handles POST /api/v1/comparisons
func (h *ComparisonHandler) Create(c *gin.Context) {
	var req struct {
		Codes []string `json:"codes" binding:"required"`
		Limit int      `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "codes is required")
		return
	}
	if len(req.Codes) > MaxCodesPerRequest {
		RespondError(c, http.StatusBadRequest, "TOO_MANY_CODES", "at most 500 codes per request")
		return
	}

	report, err := h.comparisonService.Compare(c.Request.Context(), &service.CompareInput{
		Mode:  domain.ModeOnline,
		Codes: req.Codes,
		Limit: req.Limit,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, report)
}

// ListRuns handles GET /api/v1/runs
func (h *ComparisonHandler) ListRuns(c *gin.Context) {
	offset, limit := parsePagination(c)

	runs, total, err := h.comparisonService.ListRuns(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetRun handles GET /api/v1/runs/:id
func (h *ComparisonHandler) GetRun(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}

	run, err := h.comparisonService.GetRun(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, run)
}

// ListRecords handles GET /api/v1/runs/:id/records
// Accepts ?overall=Y|N|ERROR to filter by overall verdict.
func (h *ComparisonHandler) ListRecords(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}

	filter := domain.RecordFilter{}
	if v := strings.ToUpper(c.Query("overall")); v != "" {
		switch domain.Verdict(v) {
		case domain.VerdictIdentical, domain.VerdictDifferent, domain.VerdictError:
			filter.Overall = domain.Verdict(v)
		default:
			RespondError(c, http.StatusBadRequest, "INVALID_FILTER", "overall must be one of Y, N, ERROR")
			return
		}
	}
	filter.Offset, filter.Limit = parsePagination(c)

	records, total, err := h.comparisonService.ListRecords(c.Request.Context(), runID, filter)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, records, PagMeta{Total: total, Offset: filter.Offset, Limit: filter.Limit})
}

// ListMissing handles GET /api/v1/runs/:id/missing
func (h *ComparisonHandler) ListMissing(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}

	missing, err := h.comparisonService.ListMissing(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, missing)
}

// Analysis handles GET /api/v1/runs/:id/analysis
func (h *ComparisonHandler) Analysis(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}

	analysis, err := h.comparisonService.AnalyzeRun(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, analysis)
}

// Export handles GET /api/v1/runs/:id/export, streaming the run's records as
// a results CSV.
func (h *ComparisonHandler) Export(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}

	run, records, err := h.comparisonService.ExportRun(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	name := csvexport.BuildFilename(fmt.Sprintf("ccdsync %s %s", run.Mode, run.ID.String()[:8]))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Status(http.StatusOK)
	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		log.Printf("handler.ComparisonHandler.Export: run %s: %v", runID, err)
		return
	}

	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		log.Printf("handler.ComparisonHandler.Export: run %s: %v", runID, err)
		return
	}
	if err := w.WriteRecords(records); err != nil {
		log.Printf("handler.ComparisonHandler.Export: run %s: %v", runID, err)
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("handler.ComparisonHandler.Export: run %s: %v", runID, err)
	}
}

func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return uuid.Nil, false
	}
	return runID, true
}
