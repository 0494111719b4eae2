// internal/handlers/report/report_handler.go
package report

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"fieldcrm-service/internal/domain/report"
	"fieldcrm-service/internal/middleware"
	"fieldcrm-service/internal/pkg/response"
	"fieldcrm-service/internal/service/access"
	service "fieldcrm-service/internal/service/report"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportService interface {
	Visits(ctx context.Context, caller access.Caller, q service.Query) (*report.VisitsReport, error)
	Overview(ctx context.Context, caller access.Caller, q service.Query) (*report.Overview, error)
	RepPerformance(ctx context.Context, caller access.Caller, q service.Query) ([]report.RepPerformance, error)
	ExportRepPerformance(ctx context.Context, caller access.Caller, q service.Query, format service.ExportFormat, w io.Writer) (int, error)
	ProductPerformance(ctx context.Context, caller access.Caller, q service.Query) ([]report.ProductPerformance, error)
	TerritoryPerformance(ctx context.Context, caller access.Caller, q service.Query) ([]report.TerritoryPerformance, error)
}

// ReportHandler serves report bodies bare, without the {data} envelope.
type ReportHandler struct {
	reportService ReportService
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

func NewReportHandler(reportService ReportService, loc *time.Location, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		loc:           loc,
		now:           time.Now,
		logger:        logger,
	}
}

func (h *ReportHandler) Visits(c *gin.Context) {
	caller, q, ok := h.prepare(c)
	if !ok {
		return
	}
	out, err := h.reportService.Visits(c.Request.Context(), caller, q)
	h.respond(c, out, err)
}

func (h *ReportHandler) Overview(c *gin.Context) {
	caller, q, ok := h.prepare(c)
	if !ok {
		return
	}
	out, err := h.reportService.Overview(c.Request.Context(), caller, q)
	h.respond(c, out, err)
}

func (h *ReportHandler) RepPerformance(c *gin.Context) {
	caller, q, ok := h.prepare(c)
	if !ok {
		return
	}
	out, err := h.reportService.RepPerformance(c.Request.Context(), caller, q)
	h.respond(c, out, err)
}

// ExportRepPerformance serves CSV by default and XLSX with format=xlsx.
func (h *ReportHandler) ExportRepPerformance(c *gin.Context) {
	caller, q, ok := h.prepare(c)
	if !ok {
		return
	}

	format := service.FormatCSV
	switch strings.ToLower(strings.TrimSpace(c.Query("format"))) {
	case "", "csv":
	case "xlsx":
		format = service.FormatXLSX
	default:
		response.ValidationError(c, service.MsgInvalidQuery, []string{`format must be either "csv" or "xlsx".`})
		return
	}

	var buf bytes.Buffer
	if _, err := h.reportService.ExportRepPerformance(c.Request.Context(), caller, q, format, &buf); err != nil {
		response.FromError(c, h.logger, err)
		return
	}

	if format == service.FormatXLSX {
		c.Header("Content-Disposition", `attachment; filename="rep-performance.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
		return
	}
	c.Header("Content-Disposition", `attachment; filename="rep-performance.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *ReportHandler) ProductPerformance(c *gin.Context) {
	caller, q, ok := h.prepare(c)
	if !ok {
		return
	}
	out, err := h.reportService.ProductPerformance(c.Request.Context(), caller, q)
	h.respond(c, out, err)
}

func (h *ReportHandler) TerritoryPerformance(c *gin.Context) {
	caller, q, ok := h.prepare(c)
	if !ok {
		return
	}
	out, err := h.reportService.TerritoryPerformance(c.Request.Context(), caller, q)
	h.respond(c, out, err)
}

func (h *ReportHandler) prepare(c *gin.Context) (access.Caller, service.Query, bool) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		response.Unauthorized(c, response.MsgUnauthorized)
		return access.Caller{}, service.Query{}, false
	}

	q, errs := service.ParseQuery(c.Request.URL.Query(), h.now(), h.loc)
	if len(errs) > 0 {
		response.ValidationError(c, service.MsgInvalidQuery, errs)
		return access.Caller{}, service.Query{}, false
	}
	return caller, q, true
}

func (h *ReportHandler) respond(c *gin.Context, out interface{}, err error) {
	if err != nil {
		response.FromError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
