// internal/domain/visit/query.go
package visit

import (
	"slices"
	"time"
)

// Filter is a compiled, validated visit predicate. The zero value matches
// every non-deleted visit.
type Filter struct {
	Statuses       []Status
	RepIDs         []int64
	HcpIDs         []int64
	TerritoryIDs   []int64
	DateFrom       *time.Time
	DateTo         *time.Time
	Search         string
	IncludeDeleted bool
}

func (f Filter) clone() Filter {
	g := f
	g.Statuses = slices.Clone(f.Statuses)
	g.RepIDs = slices.Clone(f.RepIDs)
	g.HcpIDs = slices.Clone(f.HcpIDs)
	g.TerritoryIDs = slices.Clone(f.TerritoryIDs)
	return g
}

// WithStatus narrows the filter to a single status. It reports false when the
// filter already pins a status set that excludes s, in which case nothing can
// match.
func (f Filter) WithStatus(s Status) (Filter, bool) {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, s) {
		return Filter{}, false
	}
	g := f.clone()
	g.Statuses = []Status{s}
	return g, true
}

// WithRepIDs replaces the rep set.
func (f Filter) WithRepIDs(ids ...int64) Filter {
	g := f.clone()
	g.RepIDs = slices.Clone(ids)
	return g
}

type SortField string

const (
	SortVisitDate       SortField = "visitDate"
	SortStatus          SortField = "status"
	SortDurationMinutes SortField = "durationMinutes"
	SortHcpName         SortField = "hcpName"
	SortRepName         SortField = "repName"
	SortTerritoryName   SortField = "territoryName"
)

var sortFields = []SortField{
	SortVisitDate, SortStatus, SortDurationMinutes,
	SortHcpName, SortRepName, SortTerritoryName,
}

func (f SortField) IsValid() bool {
	return slices.Contains(sortFields, f)
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort is the requested primary ordering. Every listing is additionally
// ordered by id ascending so pages never overlap or skip rows.
type Sort struct {
	Field     SortField
	Direction SortDirection
}

var DefaultSort = Sort{Field: SortVisitDate, Direction: SortDesc}

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages is never less than one, even for an empty result.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}

// ListParams is everything a paginated listing needs.
type ListParams struct {
	Filter Filter
	Page   Page
	Sort   Sort
}

type GroupKey string

const (
	GroupByRep  GroupKey = "rep"
	GroupByDate GroupKey = "date"
	GroupByHcp  GroupKey = "hcp"
)

// GroupCount is one row of a grouped count. Only the keys requested are set.
type GroupCount struct {
	RepID *int64
	Date  *time.Time
	HcpID *int64
	Count int64
}

// Stats are the ungrouped aggregates over a filtered set.
type Stats struct {
	Total              int64
	UniqueHcps         int64
	UniqueReps         int64
	UniqueTerritories  int64
	AvgDurationMinutes float64
	SumDurationMinutes int64
	LastVisitDate      *time.Time
}

// ReportRow is the projection report rollups consume.
type ReportRow struct {
	ID            int64
	RepID         int64
	TerritoryID   int64
	Status        Status
	AccountType   *AccountType
	HcpID         *int64
	PharmacyID    *int64
	OrderValueJOD *float64
	Rating        *int
	ProductsJSON  *string
}

// Account resolves the row's target the same way Visit.Account does.
func (r ReportRow) Account() (Account, bool) {
	v := Visit{AccountType: r.AccountType, HcpID: r.HcpID, PharmacyID: r.PharmacyID}
	return v.Account()
}
