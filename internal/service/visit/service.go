// internal/service/visit/service.go
package visit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"fieldcrm-service/internal/domain/visit"
	"fieldcrm-service/internal/metrics"
	xerrors "fieldcrm-service/internal/pkg/errors"
	"fieldcrm-service/internal/service/access"
	"fieldcrm-service/internal/service/export"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MsgVisitNotFound = "Visit not found."
	msgDuplicate     = "A visit for this rep and account already exists on that date."
)

// References checks that foreign keys point at existing rows.
type References interface {
	RepExists(ctx context.Context, id int64) (bool, error)
	HcpExists(ctx context.Context, id int64) (bool, error)
	PharmacyExists(ctx context.Context, id int64) (bool, error)
	TerritoryExists(ctx context.Context, id int64) (bool, error)
}

type VisitService struct {
	repo   visit.Repository
	refs   References
	guard  *access.Guard
	logger *zap.Logger
}

func NewVisitService(repo visit.Repository, refs References, guard *access.Guard, logger *zap.Logger) *VisitService {
	return &VisitService{
		repo:   repo,
		refs:   refs,
		guard:  guard,
		logger: logger,
	}
}

// ListMeta describes one page of a listing.
type ListMeta struct {
	Page          int                 `json:"page"`
	PageSize      int                 `json:"pageSize"`
	Total         int64               `json:"total"`
	TotalPages    int                 `json:"totalPages"`
	SortBy        visit.SortField     `json:"sortBy"`
	SortDirection visit.SortDirection `json:"sortDirection"`
	Filters       FiltersMeta         `json:"filters"`
}

type ListResult struct {
	Data []visit.View `json:"data"`
	Meta ListMeta     `json:"meta"`
}

// ListVisits returns one page of the caller's visible visits.
func (s *VisitService) ListVisits(ctx context.Context, caller access.Caller, params visit.ListParams) (*ListResult, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	metrics.VisitQueries.WithLabelValues("list").Inc()

	f := scope.Apply(params.Filter)

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}

	var rows []*visit.Visit
	if int64(params.Page.Offset()) < total {
		rows, err = s.repo.List(ctx, f, params.Sort, params.Page.Size, params.Page.Offset())
		if err != nil {
			return nil, fmt.Errorf("failed to list visits: %w", err)
		}
	}

	return &ListResult{
		Data: visit.ToViews(rows),
		Meta: ListMeta{
			Page:          params.Page.Number,
			PageSize:      params.Page.Size,
			Total:         total,
			TotalPages:    visit.TotalPages(total, params.Page.Size),
			SortBy:        params.Sort.Field,
			SortDirection: params.Sort.Direction,
			Filters:       filtersMeta(f),
		},
	}, nil
}

// ExportVisits writes every visible visit matching the filter as CSV and
// returns the row count. Nothing is written if loading fails.
func (s *VisitService) ExportVisits(ctx context.Context, caller access.Caller, params visit.ListParams, w io.Writer) (int, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return 0, err
	}
	metrics.VisitQueries.WithLabelValues("export").Inc()

	rows, err := s.repo.List(ctx, scope.Apply(params.Filter), params.Sort, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to load visits for export: %w", err)
	}

	if err := export.WriteVisitsCSV(w, visit.ToViews(rows)); err != nil {
		return 0, fmt.Errorf("failed to write visits csv: %w", err)
	}
	metrics.ExportRows.WithLabelValues("visits").Add(float64(len(rows)))
	return len(rows), nil
}

// GetVisit returns a single non-deleted visit the caller may see.
func (s *VisitService) GetVisit(ctx context.Context, caller access.Caller, id int64) (*visit.View, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	v, err := s.findLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeRecord(scope, v); err != nil {
		return nil, err
	}

	view := visit.ToView(v)
	return &view, nil
}

// CreateVisit validates, authorizes and stores a new visit.
func (s *VisitService) CreateVisit(ctx context.Context, caller access.Caller, p Payload) (*visit.View, error) {
	scope, err := s.guard.ResolveForCreate(ctx, caller)
	if err != nil {
		return nil, err
	}

	normalizePayload(p)
	if scope.Rep != nil && scope.Rep.TerritoryID != nil && (!p.has("territoryId") || p.isNull("territoryId")) {
		p["territoryId"] = []byte(strconv.FormatInt(*scope.Rep.TerritoryID, 10))
	}

	ch, errs := validatePayload(p, validateOptions{partial: false, requireRepID: !scope.RepScoped()})

	candidate := &visit.Visit{IsDeleted: false}
	if err := ch.apply(candidate); err != nil {
		return nil, err
	}

	if err := s.guard.AuthorizeCreate(ctx, scope, caller, ch.TerritoryID, candidate.AccountType); err != nil {
		return nil, err
	}

	errs = append(errs, accountErrors(candidate)...)

	if scope.RepScoped() {
		if ch.RepID != nil && *ch.RepID != scope.Rep.ID {
			errs = append(errs, "repId must match the authenticated sales representative.")
		}
		candidate.RepID = scope.Rep.ID
		ch.RepID = &scope.Rep.ID
	}

	refErrs, err := s.checkReferences(ctx, &ch)
	if err != nil {
		return nil, err
	}
	errs = append(errs, refErrs...)

	if err := xerrors.NewValidation(MsgInvalidBody, errs); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, candidate); err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			return nil, xerrors.NewValidation(MsgInvalidBody, []string{msgDuplicate})
		}
		s.logger.Error("failed to create visit", zap.Error(err))
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}

	s.logger.Info("visit created",
		zap.Int64("visit_id", candidate.ID),
		zap.Int64("rep_id", candidate.RepID),
		zap.Int64("user_id", caller.UserID),
	)

	view := visit.ToView(candidate)
	return &view, nil
}

// UpdateVisit applies a partial update. Last writer wins.
func (s *VisitService) UpdateVisit(ctx context.Context, caller access.Caller, id int64, p Payload) (*visit.View, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	v, err := s.findLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeRecord(scope, v); err != nil {
		return nil, err
	}

	normalizePayload(p)
	ch, errs := validatePayload(p, validateOptions{partial: true})
	if !ch.hasUpdates {
		errs = append(errs, "At least one field must be provided.")
	}

	if scope.RepScoped() {
		if ch.RepID != nil && *ch.RepID != scope.Rep.ID {
			errs = append(errs, "repId cannot be changed.")
		}
		ch.RepID = nil
	}

	updated := *v
	if err := ch.apply(&updated); err != nil {
		return nil, err
	}

	var territoryID *int64
	if ch.TerritoryID != nil && *ch.TerritoryID != v.TerritoryID {
		territoryID = ch.TerritoryID
	}
	var accountType *visit.AccountType
	if ch.touchesAccount() {
		accountType = updated.AccountType
	}
	if err := s.guard.AuthorizeChange(ctx, scope, caller, territoryID, accountType); err != nil {
		return nil, err
	}

	errs = append(errs, accountErrors(&updated)...)

	refErrs, err := s.checkReferences(ctx, &ch)
	if err != nil {
		return nil, err
	}
	errs = append(errs, refErrs...)

	if err := xerrors.NewValidation(MsgInvalidBody, errs); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			return nil, xerrors.NewValidation(MsgInvalidBody, []string{msgDuplicate})
		}
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NotFound(MsgVisitNotFound)
		}
		s.logger.Error("failed to update visit", zap.Int64("visit_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update visit: %w", err)
	}

	s.logger.Info("visit updated",
		zap.Int64("visit_id", id),
		zap.Int64("user_id", caller.UserID),
	)

	view := visit.ToView(&updated)
	return &view, nil
}

// DeleteVisit soft deletes a visit.
func (s *VisitService) DeleteVisit(ctx context.Context, caller access.Caller, id int64) error {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return err
	}

	v, err := s.findLive(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.AuthorizeRecord(scope, v); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return xerrors.NotFound(MsgVisitNotFound)
		}
		return fmt.Errorf("failed to delete visit: %w", err)
	}

	s.logger.Info("visit deleted",
		zap.Int64("visit_id", id),
		zap.Int64("user_id", caller.UserID),
	)
	return nil
}

func (s *VisitService) findLive(ctx context.Context, id int64) (*visit.Visit, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NotFound(MsgVisitNotFound)
		}
		return nil, fmt.Errorf("failed to find visit: %w", err)
	}
	if v.IsDeleted {
		return nil, xerrors.NotFound(MsgVisitNotFound)
	}
	return v, nil
}

// checkReferences looks up every referenced row concurrently and reports
// dangling ids in a fixed order.
func (s *VisitService) checkReferences(ctx context.Context, ch *Changes) ([]string, error) {
	type check struct {
		id     *int64
		exists func(context.Context, int64) (bool, error)
		msg    string
	}
	checks := []check{
		{ch.RepID, s.refs.RepExists, "repId must reference an existing sales rep."},
		{ch.HcpID.Value, s.refs.HcpExists, "hcpId must reference an existing HCP."},
		{ch.PharmacyID.Value, s.refs.PharmacyExists, "pharmacyId must reference an existing Pharmacy."},
		{ch.TerritoryID, s.refs.TerritoryExists, "territoryId must reference an existing territory."},
	}

	missing := make([]bool, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		if c.id == nil {
			continue
		}
		g.Go(func() error {
			ok, err := c.exists(gctx, *c.id)
			if err != nil {
				return err
			}
			missing[i] = !ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to check references: %w", err)
	}

	var errs []string
	for i, c := range checks {
		if missing[i] {
			errs = append(errs, c.msg)
		}
	}
	return errs, nil
}
