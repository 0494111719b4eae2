// internal/handlers/visit/visit_handler.go
package visit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"fieldcrm-service/internal/domain/visit"
	"fieldcrm-service/internal/middleware"
	"fieldcrm-service/internal/pkg/response"
	"fieldcrm-service/internal/service/access"
	service "fieldcrm-service/internal/service/visit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VisitService is the part of the visit service the handler drives.
type VisitService interface {
	ListVisits(ctx context.Context, caller access.Caller, params visit.ListParams) (*service.ListResult, error)
	SummarizeVisits(ctx context.Context, caller access.Caller, f visit.Filter) (*service.SummaryView, error)
	ExportVisits(ctx context.Context, caller access.Caller, params visit.ListParams, w io.Writer) (int, error)
	GetVisit(ctx context.Context, caller access.Caller, id int64) (*visit.View, error)
	CreateVisit(ctx context.Context, caller access.Caller, p service.Payload) (*visit.View, error)
	UpdateVisit(ctx context.Context, caller access.Caller, id int64, p service.Payload) (*visit.View, error)
	DeleteVisit(ctx context.Context, caller access.Caller, id int64) error
}

type VisitHandler struct {
	visitService VisitService
	limits       service.Limits
	logger       *zap.Logger
}

func NewVisitHandler(visitService VisitService, limits service.Limits, logger *zap.Logger) *VisitHandler {
	return &VisitHandler{
		visitService: visitService,
		limits:       limits,
		logger:       logger,
	}
}

// ListVisits returns one page of visits
func (h *VisitHandler) ListVisits(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	params, errs := service.ParseListQuery(c.Request.URL.Query(), h.limits)
	if len(errs) > 0 {
		response.ValidationError(c, service.MsgInvalidQuery, errs)
		return
	}

	result, err := h.visitService.ListVisits(c.Request.Context(), caller, params)
	if err != nil {
		response.FromError(c, h.logger, err)
		return
	}

	response.List(c, result.Data, result.Meta)
}

// LatestVisits returns the newest few visits for dashboards
func (h *VisitHandler) LatestVisits(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	params, errs := service.ParseLatestQuery(c.Request.URL.Query(), h.limits)
	if len(errs) > 0 {
		response.ValidationError(c, service.MsgInvalidQuery, errs)
		return
	}

	result, err := h.visitService.ListVisits(c.Request.Context(), caller, params)
	if err != nil {
		response.FromError(c, h.logger, err)
		return
	}

	response.List(c, result.Data, result.Meta)
}

// Summary returns aggregate counts for the filtered visits
func (h *VisitHandler) Summary(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	f, errs := service.ParseFilterQuery(c.Request.URL.Query())
	if len(errs) > 0 {
		response.ValidationError(c, service.MsgInvalidQuery, errs)
		return
	}

	summary, err := h.visitService.SummarizeVisits(c.Request.Context(), caller, f)
	if err != nil {
		response.FromError(c, h.logger, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// Export streams every filtered visit as CSV. The file is built in memory
// first so a storage failure still yields a JSON error.
func (h *VisitHandler) Export(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	params, errs := service.ParseListQuery(c.Request.URL.Query(), h.limits)
	if len(errs) > 0 {
		response.ValidationError(c, service.MsgInvalidQuery, errs)
		return
	}

	var buf bytes.Buffer
	if _, err := h.visitService.ExportVisits(c.Request.Context(), caller, params, &buf); err != nil {
		response.FromError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="visits.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GetVisit returns a single visit
func (h *VisitHandler) GetVisit(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	v, err := h.visitService.GetVisit(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, h.logger, err)
		return
	}

	response.Success(c, http.StatusOK, v)
}

// CreateVisit creates a new visit
func (h *VisitHandler) CreateVisit(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	payload, ok := readPayload(c)
	if !ok {
		return
	}

	v, err := h.visitService.CreateVisit(c.Request.Context(), caller, payload)
	if err != nil {
		response.FromError(c, h.logger, err)
		return
	}

	response.Success(c, http.StatusCreated, v)
}

// UpdateVisit applies a partial update
func (h *VisitHandler) UpdateVisit(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	payload, ok := readPayload(c)
	if !ok {
		return
	}

	v, err := h.visitService.UpdateVisit(c.Request.Context(), caller, id, payload)
	if err != nil {
		response.FromError(c, h.logger, err)
		return
	}

	response.Success(c, http.StatusOK, v)
}

// DeleteVisit soft deletes a visit
func (h *VisitHandler) DeleteVisit(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.visitService.DeleteVisit(c.Request.Context(), caller, id); err != nil {
		response.FromError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *VisitHandler) caller(c *gin.Context) (access.Caller, bool) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		response.Unauthorized(c, response.MsgUnauthorized)
		return access.Caller{}, false
	}
	return caller, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.ValidationError(c, service.MsgInvalidQuery, []string{"id must be a positive integer."})
		return 0, false
	}
	return id, true
}

// readPayload accepts an empty body as an empty object; anything that is not
// a JSON object is rejected.
func readPayload(c *gin.Context) (service.Payload, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		response.ValidationError(c, service.MsgInvalidBody, []string{"Request body could not be read."})
		return nil, false
	}

	payload := service.Payload{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return payload, true
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		response.ValidationError(c, service.MsgInvalidBody, []string{"Request body must be a JSON object."})
		return nil, false
	}
	if payload == nil {
		payload = service.Payload{}
	}
	return payload, true
}
