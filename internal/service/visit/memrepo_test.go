package visit

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"fieldcrm-service/internal/domain/rep"
	"fieldcrm-service/internal/domain/visit"
	xerrors "fieldcrm-service/internal/pkg/errors"
)

// memRepo is an in-memory visit.Repository with the same filter semantics as
// the postgres one.
type memRepo struct {
	mu          sync.Mutex
	visits      []*visit.Visit
	nextID      int64
	reps        map[int64]visit.RepRef
	hcps        map[int64]visit.HcpRef
	territories map[int64]visit.TerritoryRef
	now         time.Time
}

func (m *memRepo) hydrate(v *visit.Visit) *visit.Visit {
	out := *v
	if r, ok := m.reps[v.RepID]; ok {
		out.Rep = &r
	}
	if v.HcpID != nil {
		if h, ok := m.hcps[*v.HcpID]; ok {
			out.Hcp = &h
		}
	}
	if t, ok := m.territories[v.TerritoryID]; ok {
		out.Territory = &t
	}
	return &out
}

func (m *memRepo) matches(f visit.Filter, v *visit.Visit) bool {
	if !f.IncludeDeleted && v.IsDeleted {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, v.Status) {
		return false
	}
	if len(f.RepIDs) > 0 && !slices.Contains(f.RepIDs, v.RepID) {
		return false
	}
	if len(f.HcpIDs) > 0 && (v.HcpID == nil || !slices.Contains(f.HcpIDs, *v.HcpID)) {
		return false
	}
	if len(f.TerritoryIDs) > 0 && !slices.Contains(f.TerritoryIDs, v.TerritoryID) {
		return false
	}
	if f.DateFrom != nil && v.VisitDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && v.VisitDate.After(*f.DateTo) {
		return false
	}
	if f.Search != "" {
		h := m.hydrate(v)
		needle := strings.ToLower(f.Search)
		var haystack []string
		if h.Hcp != nil {
			haystack = append(haystack, h.Hcp.Name)
			if h.Hcp.AreaTag != nil {
				haystack = append(haystack, *h.Hcp.AreaTag)
			}
		}
		if h.Rep != nil {
			haystack = append(haystack, h.Rep.Name)
		}
		if h.Territory != nil {
			haystack = append(haystack, h.Territory.Name)
		}
		found := false
		for _, s := range haystack {
			if strings.Contains(strings.ToLower(s), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *memRepo) filtered(f visit.Filter) []*visit.Visit {
	var out []*visit.Visit
	for _, v := range m.visits {
		if m.matches(f, v) {
			out = append(out, m.hydrate(v))
		}
	}
	return out
}

func (m *memRepo) Count(_ context.Context, f visit.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filtered(f))), nil
}

func (m *memRepo) List(_ context.Context, f visit.Filter, s visit.Sort, limit, offset int) ([]*visit.Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.filtered(f)
	slices.SortFunc(rows, func(a, b *visit.Visit) int {
		c := compareBy(s.Field, a, b)
		if s.Direction == visit.SortDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func compareBy(field visit.SortField, a, b *visit.Visit) int {
	switch field {
	case visit.SortStatus:
		return cmp.Compare(a.Status, b.Status)
	case visit.SortDurationMinutes:
		return cmp.Compare(a.DurationMinutes, b.DurationMinutes)
	case visit.SortHcpName:
		return cmp.Compare(hcpName(a), hcpName(b))
	case visit.SortRepName:
		return cmp.Compare(a.Rep.Name, b.Rep.Name)
	case visit.SortTerritoryName:
		return cmp.Compare(a.Territory.Name, b.Territory.Name)
	default:
		return a.VisitDate.Compare(b.VisitDate)
	}
}

func hcpName(v *visit.Visit) string {
	if v.Hcp == nil {
		return ""
	}
	return v.Hcp.Name
}

func (m *memRepo) Stats(_ context.Context, f visit.Filter) (*visit.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := &visit.Stats{}
	hcps, reps, territories := map[int64]bool{}, map[int64]bool{}, map[int64]bool{}
	for _, v := range m.filtered(f) {
		st.Total++
		st.SumDurationMinutes += int64(v.DurationMinutes)
		if v.HcpID != nil {
			hcps[*v.HcpID] = true
		}
		reps[v.RepID] = true
		territories[v.TerritoryID] = true
		if st.LastVisitDate == nil || v.VisitDate.After(*st.LastVisitDate) {
			d := v.VisitDate
			st.LastVisitDate = &d
		}
	}
	st.UniqueHcps = int64(len(hcps))
	st.UniqueReps = int64(len(reps))
	st.UniqueTerritories = int64(len(territories))
	if st.Total > 0 {
		st.AvgDurationMinutes = float64(st.SumDurationMinutes) / float64(st.Total)
	}
	return st, nil
}

func (m *memRepo) GroupCount(context.Context, visit.Filter, ...visit.GroupKey) ([]visit.GroupCount, error) {
	return nil, nil
}

func (m *memRepo) ListForReport(context.Context, visit.Filter) ([]visit.ReportRow, error) {
	return nil, nil
}

func (m *memRepo) FindByID(_ context.Context, id int64) (*visit.Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.visits {
		if v.ID == id {
			return m.hydrate(v), nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (m *memRepo) conflicts(v *visit.Visit) bool {
	if v.HcpID == nil {
		return false
	}
	for _, o := range m.visits {
		if o.ID != v.ID && o.HcpID != nil && *o.HcpID == *v.HcpID &&
			o.RepID == v.RepID && o.VisitDate.Equal(v.VisitDate) {
			return true
		}
	}
	return false
}

func (m *memRepo) Create(_ context.Context, v *visit.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(v) {
		return xerrors.ErrConflict
	}
	m.nextID++
	stored := *v
	stored.ID = m.nextID
	stored.CreatedAt, stored.UpdatedAt = m.now, m.now
	m.visits = append(m.visits, &stored)
	*v = *m.hydrate(&stored)
	return nil
}

func (m *memRepo) Update(_ context.Context, v *visit.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(v) {
		return xerrors.ErrConflict
	}
	for i, o := range m.visits {
		if o.ID == v.ID && !o.IsDeleted {
			stored := *v
			stored.Rep, stored.Hcp, stored.Pharmacy, stored.Territory = nil, nil, nil, nil
			m.visits[i] = &stored
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (m *memRepo) SoftDelete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.visits {
		if v.ID == id && !v.IsDeleted {
			v.IsDeleted = true
			return nil
		}
	}
	return xerrors.ErrNotFound
}

type memRefs struct {
	reps, hcps, pharmacies, territories map[int64]bool
}

func (r memRefs) RepExists(_ context.Context, id int64) (bool, error)  { return r.reps[id], nil }
func (r memRefs) HcpExists(_ context.Context, id int64) (bool, error)  { return r.hcps[id], nil }
func (r memRefs) PharmacyExists(_ context.Context, id int64) (bool, error) {
	return r.pharmacies[id], nil
}
func (r memRefs) TerritoryExists(_ context.Context, id int64) (bool, error) {
	return r.territories[id], nil
}

type memProfiles struct {
	reps        map[string]*rep.Profile
	territories map[string][]int64
}

func (p memProfiles) FindRepByEmail(_ context.Context, email string) (*rep.Profile, error) {
	if r, ok := p.reps[email]; ok {
		return r, nil
	}
	return nil, xerrors.ErrNotFound
}

func (p memProfiles) ListAssignedTerritoryIDs(_ context.Context, email string) ([]int64, error) {
	return p.territories[email], nil
}
