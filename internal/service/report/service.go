// internal/service/report/service.go
package report

import (
	"context"
	"fmt"
	"io"

	"fieldcrm-service/internal/domain/rep"
	"fieldcrm-service/internal/domain/report"
	"fieldcrm-service/internal/domain/visit"
	"fieldcrm-service/internal/metrics"
	"fieldcrm-service/internal/service/access"
	"fieldcrm-service/internal/service/export"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Lookups supplies the labels reports join onto their rollups.
type Lookups interface {
	ListReps(ctx context.Context) ([]rep.Profile, error)
	ListTerritories(ctx context.Context) ([]rep.Territory, error)
}

type ReportService struct {
	repo    visit.Repository
	lookups Lookups
	guard   *access.Guard
	logger  *zap.Logger
}

func NewReportService(repo visit.Repository, lookups Lookups, guard *access.Guard, logger *zap.Logger) *ReportService {
	return &ReportService{
		repo:    repo,
		lookups: lookups,
		guard:   guard,
		logger:  logger,
	}
}

// scopedFilter forces rep-scoped callers onto their own rep id whatever
// salesRepId they asked for.
func (s *ReportService) scopedFilter(ctx context.Context, caller access.Caller, q Query) (visit.Filter, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return visit.Filter{}, err
	}
	return scope.Apply(q.Filter()), nil
}

func window(q Query) report.Window {
	return report.Window{From: visit.FormatDate(q.From), To: visit.FormatDate(q.To)}
}

// Visits counts visits per rep per day and per HCP.
func (s *ReportService) Visits(ctx context.Context, caller access.Caller, q Query) (*report.VisitsReport, error) {
	f, err := s.scopedFilter(ctx, caller, q)
	if err != nil {
		return nil, err
	}
	metrics.VisitQueries.WithLabelValues("report_visits").Inc()

	var perDay, perHcp []visit.GroupCount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		perDay, err = s.repo.GroupCount(gctx, f, visit.GroupByRep, visit.GroupByDate)
		return err
	})
	g.Go(func() error {
		var err error
		perHcp, err = s.repo.GroupCount(gctx, f, visit.GroupByHcp)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build visits report: %w", err)
	}

	out := &report.VisitsReport{
		BySalesRepPerDay: make([]report.RepDayCount, 0, len(perDay)),
		ByHcp:            make([]report.HcpCount, 0, len(perHcp)),
	}
	for _, gc := range perDay {
		row := report.RepDayCount{Count: gc.Count}
		if gc.RepID != nil {
			row.SalesRepID = *gc.RepID
		}
		if gc.Date != nil {
			row.Date = visit.FormatDate(*gc.Date)
		}
		out.BySalesRepPerDay = append(out.BySalesRepPerDay, row)
	}
	for _, gc := range perHcp {
		out.ByHcp = append(out.ByHcp, report.HcpCount{HcpID: gc.HcpID, Count: gc.Count})
	}
	return out, nil
}

func (s *ReportService) Overview(ctx context.Context, caller access.Caller, q Query) (*report.Overview, error) {
	rows, err := s.loadRows(ctx, caller, q, "report_overview")
	if err != nil {
		return nil, err
	}
	out := buildOverview(window(q), rows)
	return &out, nil
}

func (s *ReportService) RepPerformance(ctx context.Context, caller access.Caller, q Query) ([]report.RepPerformance, error) {
	rows, err := s.loadRows(ctx, caller, q, "report_rep_performance")
	if err != nil {
		return nil, err
	}

	var reps []rep.Profile
	var territories []rep.Territory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reps, err = s.lookups.ListReps(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		territories, err = s.lookups.ListTerritories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load report lookups: %w", err)
	}

	return buildRepPerformance(rows, reps, territories), nil
}

// ExportFormat selects the rep performance export encoding.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ExportRepPerformance writes the rep performance report and returns the
// number of rep rows written.
func (s *ReportService) ExportRepPerformance(ctx context.Context, caller access.Caller, q Query, format ExportFormat, w io.Writer) (int, error) {
	rows, err := s.RepPerformance(ctx, caller, q)
	if err != nil {
		return 0, err
	}

	switch format {
	case FormatXLSX:
		err = export.WriteRepPerformanceXLSX(w, rows)
	default:
		err = export.WriteRepPerformanceCSV(w, rows)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to export rep performance: %w", err)
	}
	metrics.ExportRows.WithLabelValues("rep_performance").Add(float64(len(rows)))
	return len(rows), nil
}

func (s *ReportService) ProductPerformance(ctx context.Context, caller access.Caller, q Query) ([]report.ProductPerformance, error) {
	rows, err := s.loadRows(ctx, caller, q, "report_product_performance")
	if err != nil {
		return nil, err
	}
	return buildProductPerformance(rows), nil
}

func (s *ReportService) TerritoryPerformance(ctx context.Context, caller access.Caller, q Query) ([]report.TerritoryPerformance, error) {
	rows, err := s.loadRows(ctx, caller, q, "report_territory_performance")
	if err != nil {
		return nil, err
	}

	territories, err := s.lookups.ListTerritories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load territories: %w", err)
	}
	return buildTerritoryPerformance(rows, territories), nil
}

func (s *ReportService) loadRows(ctx context.Context, caller access.Caller, q Query, op string) ([]reportVisit, error) {
	f, err := s.scopedFilter(ctx, caller, q)
	if err != nil {
		return nil, err
	}
	metrics.VisitQueries.WithLabelValues(op).Inc()

	rows, err := s.repo.ListForReport(ctx, f)
	if err != nil {
		s.logger.Error("failed to load report rows", zap.String("report", op), zap.Error(err))
		return nil, fmt.Errorf("failed to load report rows: %w", err)
	}
	return decodeRows(rows), nil
}
