package visit

import (
	"context"
	"fmt"
	"math"

	"fieldcrm-service/internal/domain/visit"
	"fieldcrm-service/internal/metrics"
	"fieldcrm-service/internal/service/access"

	"golang.org/x/sync/errgroup"
)

// SummaryView is the aggregate over a filtered visit set.
type SummaryView struct {
	TotalVisits            int64   `json:"totalVisits"`
	CompletedVisits        int64   `json:"completedVisits"`
	ScheduledVisits        int64   `json:"scheduledVisits"`
	CancelledVisits        int64   `json:"cancelledVisits"`
	UniqueHcps             int64   `json:"uniqueHcps"`
	UniqueReps             int64   `json:"uniqueReps"`
	UniqueTerritories      int64   `json:"uniqueTerritories"`
	AverageDurationMinutes float64 `json:"averageDurationMinutes"`
	TotalDurationMinutes   int64   `json:"totalDurationMinutes"`
	LastVisitDate          *string `json:"lastVisitDate"`
}

// SummarizeVisits aggregates every visible visit matching the filter,
// ignoring pagination. Per-status counts intersect the caller's own status
// filter, so a status the filter excludes always counts zero.
func (s *VisitService) SummarizeVisits(ctx context.Context, caller access.Caller, f visit.Filter) (*SummaryView, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	metrics.VisitQueries.WithLabelValues("summary").Inc()

	f = scope.Apply(f)

	var stats *visit.Stats
	counts := make([]int64, len(visit.Statuses))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.repo.Stats(gctx, f)
		if err != nil {
			return err
		}
		stats = st
		return nil
	})
	for i, status := range visit.Statuses {
		narrowed, ok := f.WithStatus(status)
		if !ok {
			continue
		}
		g.Go(func() error {
			n, err := s.repo.Count(gctx, narrowed)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to summarize visits: %w", err)
	}

	out := &SummaryView{
		TotalVisits:            stats.Total,
		UniqueHcps:             stats.UniqueHcps,
		UniqueReps:             stats.UniqueReps,
		UniqueTerritories:      stats.UniqueTerritories,
		AverageDurationMinutes: round2(stats.AvgDurationMinutes),
		TotalDurationMinutes:   stats.SumDurationMinutes,
	}
	for i, status := range visit.Statuses {
		switch status {
		case visit.StatusScheduled:
			out.ScheduledVisits = counts[i]
		case visit.StatusCompleted:
			out.CompletedVisits = counts[i]
		case visit.StatusCancelled:
			out.CancelledVisits = counts[i]
		}
	}
	if stats.LastVisitDate != nil {
		d := visit.FormatDate(*stats.LastVisitDate)
		out.LastVisitDate = &d
	}
	return out, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
