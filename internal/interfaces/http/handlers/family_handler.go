package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/FamilyScope/internal/application/acquisition"
	"github.com/turtacn/FamilyScope/internal/application/analysis"
	appFamily "github.com/turtacn/FamilyScope/internal/application/family"
	"github.com/turtacn/FamilyScope/internal/application/importer"
	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// maxImportBatch bounds one import request.
const maxImportBatch = 500

// FamilyService is the part of the family application service the API uses.
type FamilyService interface {
	List(ctx context.Context) (*family.Collection, error)
	Get(ctx context.Context, ref string) (family.Record, error)
	Add(ctx context.Context, raw string) (*appFamily.AddResult, error)
	Update(ctx context.Context, id string, patch family.Patch) (family.Record, error)
	Remove(ctx context.Context, id string) (family.Record, error)
	Clear(ctx context.Context) error
	Retry(ctx context.Context, id string) (family.Record, error)
	Candidates(ctx context.Context, raw string) (*acquisition.Result, error)
	Import(ctx context.Context, ids []string, progress func(done, total int)) (*importer.Report, error)
	ImportReport(ctx context.Context, jobID string) (*importer.Report, error)
}

// Analyzer runs analyses over the stored family.
type Analyzer interface {
	AnalyzeFamily(ctx context.Context) (*analysis.FamilyResult, error)
	CompareClaims(ctx context.Context, refA, refB string) (*analysis.Comparison, error)
}

// ImportQueue hands an import to a background runner and returns its job id.
type ImportQueue interface {
	RequestImport(ctx context.Context, session string, ids []string) (string, error)
}

// FamilyHandler serves /api/v1/family and /api/v1/patents.
type FamilyHandler struct {
	service  FamilyService
	analyzer Analyzer
	queue    ImportQueue
	session  string
	logger   logging.Logger
}

// NewFamilyHandler creates a FamilyHandler.  queue may be nil, in which
// case async imports are refused.
func NewFamilyHandler(service FamilyService, analyzer Analyzer, queue ImportQueue, session string, logger logging.Logger) *FamilyHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FamilyHandler{
		service:  service,
		analyzer: analyzer,
		queue:    queue,
		session:  session,
		logger:   logger.Named("family_handler"),
	}
}

// RegisterRoutes mounts the handler on an /api/v1 group.
func (h *FamilyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	f := rg.Group("/family")
	f.GET("", h.List)
	f.DELETE("", h.Clear)
	f.POST("/members", h.Add)
	f.GET("/members/:id", h.Get)
	f.PATCH("/members/:id", h.Update)
	f.DELETE("/members/:id", h.Remove)
	f.POST("/members/:id/retry", h.Retry)
	f.POST("/import", h.Import)
	f.GET("/import/:job_id", h.ImportReport)
	f.POST("/analyze", h.Analyze)
	f.POST("/compare", h.Compare)

	rg.GET("/patents/:number/candidates", h.Candidates)
}

// AddRequest is the body of POST /family/members.
type AddRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// ImportRequest is the body of POST /family/import.  async may also be
// given as a query parameter.
type ImportRequest struct {
	Identifiers []string `json:"identifiers" binding:"required"`
	Async       bool     `json:"async"`
}

// ImportAccepted is the 202 body of an async import.
type ImportAccepted struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CompareRequest is the body of POST /family/compare.  Each side is a
// record id or a patent number.
type CompareRequest struct {
	A string `json:"a" binding:"required"`
	B string `json:"b" binding:"required"`
}

// List handles GET /family.
func (h *FamilyHandler) List(c *gin.Context) {
	coll, err := h.service.List(c.Request.Context())
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, coll)
}

// Add handles POST /family/members: 201 for a new member, 200 when the
// patent is already in the family.
func (h *FamilyHandler) Add(c *gin.Context) {
	var req AddRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.service.Add(c.Request.Context(), req.Identifier)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	status := http.StatusCreated
	if !res.Added {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// Get handles GET /family/members/:id.  The id may also be a patent number.
func (h *FamilyHandler) Get(c *gin.Context) {
	r, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Update handles PATCH /family/members/:id.
func (h *FamilyHandler) Update(c *gin.Context) {
	var patch family.Patch
	if !bindJSON(c, h.logger, &patch) {
		return
	}
	r, err := h.service.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Remove handles DELETE /family/members/:id and returns the removed record.
func (h *FamilyHandler) Remove(c *gin.Context) {
	r, err := h.service.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Retry handles POST /family/members/:id/retry.
func (h *FamilyHandler) Retry(c *gin.Context) {
	r, err := h.service.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Clear handles DELETE /family.
func (h *FamilyHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Import handles POST /family/import.  Synchronous imports answer with the
// report; async ones are queued and answer 202 with the job id.
func (h *FamilyHandler) Import(c *gin.Context) {
	var req ImportRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	ids := make([]string, 0, len(req.Identifiers))
	for _, id := range req.Identifiers {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeAppError(c, h.logger, errors.InvalidParam("identifiers must not be empty"))
		return
	}
	if len(ids) > maxImportBatch {
		writeAppError(c, h.logger, errors.Newf(errors.ErrCodeValidation, "at most %d identifiers per import", maxImportBatch))
		return
	}

	if req.Async || c.Query("async") == "true" {
		if h.queue == nil {
			writeAppError(c, h.logger, errors.New(errors.ErrCodeServiceUnavailable, "async import is not enabled"))
			return
		}
		jobID, err := h.queue.RequestImport(c.Request.Context(), h.session, ids)
		if err != nil {
			writeAppError(c, h.logger, err)
			return
		}
		h.logger.Info("import queued", logging.String("job_id", jobID), logging.Int("items", len(ids)))
		c.JSON(http.StatusAccepted, ImportAccepted{JobID: jobID, Status: "queued"})
		return
	}

	report, err := h.service.Import(c.Request.Context(), ids, nil)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ImportReport handles GET /family/import/:job_id.
func (h *FamilyHandler) ImportReport(c *gin.Context) {
	report, err := h.service.ImportReport(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Analyze handles POST /family/analyze.
func (h *FamilyHandler) Analyze(c *gin.Context) {
	res, err := h.analyzer.AnalyzeFamily(c.Request.Context())
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Compare handles POST /family/compare.
func (h *FamilyHandler) Compare(c *gin.Context) {
	var req CompareRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.analyzer.CompareClaims(c.Request.Context(), req.A, req.B)
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Candidates handles GET /patents/:number/candidates.  Nothing is stored.
func (h *FamilyHandler) Candidates(c *gin.Context) {
	res, err := h.service.Candidates(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeAppError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

//Personal.AI order the ending
