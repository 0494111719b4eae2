package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldcrm-service/internal/domain/report"
	"fieldcrm-service/internal/middleware"
	xerrors "fieldcrm-service/internal/pkg/errors"
	"fieldcrm-service/internal/service/access"
	service "fieldcrm-service/internal/service/report"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeReportService struct {
	query  service.Query
	format service.ExportFormat
	err    error
}

func (f *fakeReportService) Visits(_ context.Context, _ access.Caller, q service.Query) (*report.VisitsReport, error) {
	f.query = q
	return &report.VisitsReport{BySalesRepPerDay: []report.RepDayCount{}, ByHcp: []report.HcpCount{}}, f.err
}

func (f *fakeReportService) Overview(_ context.Context, _ access.Caller, q service.Query) (*report.Overview, error) {
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return &report.Overview{From: "2024-05-01", To: "2024-05-31"}, nil
}

func (f *fakeReportService) RepPerformance(_ context.Context, _ access.Caller, q service.Query) ([]report.RepPerformance, error) {
	f.query = q
	return []report.RepPerformance{}, f.err
}

func (f *fakeReportService) ExportRepPerformance(_ context.Context, _ access.Caller, q service.Query, format service.ExportFormat, w io.Writer) (int, error) {
	f.query, f.format = q, format
	if f.err != nil {
		return 0, f.err
	}
	_, err := io.WriteString(w, "payload")
	return 1, err
}

func (f *fakeReportService) ProductPerformance(_ context.Context, _ access.Caller, q service.Query) ([]report.ProductPerformance, error) {
	f.query = q
	return []report.ProductPerformance{}, f.err
}

func (f *fakeReportService) TerritoryPerformance(_ context.Context, _ access.Caller, q service.Query) ([]report.TerritoryPerformance, error) {
	f.query = q
	return []report.TerritoryPerformance{}, f.err
}

func newRouter(svc ReportService) *gin.Engine {
	h := NewReportHandler(svc, time.UTC, zap.NewNop())
	h.now = func() time.Time { return time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetCaller(c, access.Caller{UserID: 1, Roles: []string{"admin"}})
	})
	g := r.Group("/api/reports")
	g.GET("/visits", h.Visits)
	g.GET("/overview", h.Overview)
	g.GET("/rep-performance", h.RepPerformance)
	g.GET("/rep-performance/export", h.ExportRepPerformance)
	g.GET("/product-performance", h.ProductPerformance)
	g.GET("/territory-performance", h.TerritoryPerformance)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestOverviewIsBareJSON(t *testing.T) {
	svc := &fakeReportService{}
	w := get(newRouter(svc), "/api/reports/overview")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `{"from":"2024-05-01","to":"2024-05-31",`)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), svc.query.From)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), svc.query.To)
}

func TestListReportsRenderEmptyArrays(t *testing.T) {
	r := newRouter(&fakeReportService{})
	for _, path := range []string{"/api/reports/rep-performance", "/api/reports/product-performance", "/api/reports/territory-performance"} {
		w := get(r, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "[]", w.Body.String(), path)
	}

	w := get(r, "/api/reports/visits")
	assert.JSONEq(t, `{"bySalesRepPerDay":[],"byHcp":[]}`, w.Body.String())
}

func TestReportQueryValidation(t *testing.T) {
	svc := &fakeReportService{}
	w := get(newRouter(svc), "/api/reports/overview?from=2024-06-10&to=2024-06-01")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Invalid query parameters.","errors":["from must be on or before to."]}`, w.Body.String())
	assert.True(t, svc.query.From.IsZero())
}

func TestReportForbidden(t *testing.T) {
	w := get(newRouter(&fakeReportService{err: xerrors.Forbidden(access.MsgInsufficientPermissions)}), "/api/reports/overview")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportRepPerformanceFormats(t *testing.T) {
	svc := &fakeReportService{}
	r := newRouter(svc)

	w := get(r, "/api/reports/rep-performance/export?salesRepId=4")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.FormatCSV, svc.format)
	assert.Equal(t, `attachment; filename="rep-performance.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, int64(4), *svc.query.SalesRepID)

	w = get(r, "/api/reports/rep-performance/export?format=XLSX")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.FormatXLSX, svc.format)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="rep-performance.xlsx"`, w.Header().Get("Content-Disposition"))

	w = get(r, "/api/reports/rep-performance/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Invalid query parameters.","errors":["format must be either \"csv\" or \"xlsx\"."]}`, w.Body.String())
}
