// internal/service/visit/filter.go
package visit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fieldcrm-service/internal/domain/visit"
)

const (
	MsgInvalidQuery = "Invalid query parameters."

	DefaultPage       = 1
	DefaultPageSize   = 25
	MaxPageSize       = 100
	latestPageSize    = 5
	latestMaxPageSize = 25
)

// Limits bounds page sizes; configured at startup.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

var DefaultLimits = Limits{DefaultPageSize: DefaultPageSize, MaxPageSize: MaxPageSize}

// ParseListQuery validates raw query parameters into list params. Every
// problem is reported; a non-empty error list means the request must be
// rejected before any storage access.
func ParseListQuery(q url.Values, limits Limits) (visit.ListParams, []string) {
	var errs []string
	params := visit.ListParams{
		Page: visit.Page{Number: DefaultPage, Size: limits.DefaultPageSize},
		Sort: visit.DefaultSort,
	}

	if raw, ok := scalar(q, "page"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, "page must be a positive integer.")
		} else {
			params.Page.Number = n
		}
	}

	if raw, ok := scalar(q, "pageSize"); ok {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil || n < 1:
			errs = append(errs, "pageSize must be a positive integer.")
		case n > limits.MaxPageSize:
			errs = append(errs, fmt.Sprintf("pageSize must be less than or equal to %d.", limits.MaxPageSize))
		default:
			params.Page.Size = n
		}
	}

	if raw, ok := scalar(q, "sortBy"); ok {
		if f := visit.SortField(raw); f.IsValid() {
			params.Sort.Field = f
		} else {
			errs = append(errs, "sortBy contains an unsupported field.")
		}
	}

	if raw, ok := scalar(q, "sortDirection"); ok {
		switch d := visit.SortDirection(strings.ToLower(raw)); d {
		case visit.SortAsc, visit.SortDesc:
			params.Sort.Direction = d
		default:
			errs = append(errs, `sortDirection must be either "asc" or "desc".`)
		}
	}

	f, ferrs := parseFilter(q)
	params.Filter = f
	errs = append(errs, ferrs...)

	return params, errs
}

// ParseLatestQuery is ParseListQuery for the dashboard feed: always the first
// page of the newest visits, five by default and never more than 25.
func ParseLatestQuery(q url.Values, limits Limits) (visit.ListParams, []string) {
	params, errs := ParseListQuery(q, limits)
	params.Page.Number = 1
	if _, ok := scalar(q, "pageSize"); !ok {
		params.Page.Size = latestPageSize
	}
	params.Page.Size = min(params.Page.Size, latestMaxPageSize)
	params.Sort = visit.DefaultSort
	return params, errs
}

// ParseFilterQuery validates only the filter parameters, for endpoints that
// neither page nor sort.
func ParseFilterQuery(q url.Values) (visit.Filter, []string) {
	return parseFilter(q)
}

func parseFilter(q url.Values) (visit.Filter, []string) {
	var errs []string
	var f visit.Filter

	if statuses := list(q, "status"); len(statuses) > 0 {
		for _, s := range statuses {
			st := visit.Status(s)
			if !st.IsValid() {
				errs = append(errs, statusError())
				break
			}
			f.Statuses = append(f.Statuses, st)
		}
	}

	var ierr string
	if f.RepIDs, ierr = idList(q, "repId"); ierr != "" {
		errs = append(errs, ierr)
	}
	if f.HcpIDs, ierr = idList(q, "hcpId"); ierr != "" {
		errs = append(errs, ierr)
	}
	if f.TerritoryIDs, ierr = idList(q, "territoryId"); ierr != "" {
		errs = append(errs, ierr)
	}

	if raw, ok := scalar(q, "dateFrom"); ok {
		if d, ok := visit.ParseDate(raw); ok {
			f.DateFrom = &d
		} else {
			errs = append(errs, "dateFrom must be a valid ISO-8601 date string.")
		}
	}
	if raw, ok := scalar(q, "dateTo"); ok {
		if d, ok := visit.ParseDate(raw); ok {
			f.DateTo = &d
		} else {
			errs = append(errs, "dateTo must be a valid ISO-8601 date string.")
		}
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		errs = append(errs, "dateFrom must be on or before dateTo.")
	}

	if raw, ok := scalar(q, "q"); ok {
		f.Search = raw
	}

	if raw, ok := scalar(q, "includeDeleted"); ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, "includeDeleted must be a boolean.")
		} else {
			f.IncludeDeleted = b
		}
	}

	return f, errs
}

func statusError() string {
	names := make([]string, len(visit.Statuses))
	for i, s := range visit.Statuses {
		names[i] = string(s)
	}
	return "status must be one of: " + strings.Join(names, ", ")
}

// idList parses positive integer ids and reports at most one error per field.
func idList(q url.Values, key string) ([]int64, string) {
	var ids []int64
	bad := false
	for _, tok := range list(q, key) {
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil || n < 1 {
			bad = true
			continue
		}
		ids = append(ids, n)
	}
	if bad {
		return ids, key + " must contain integer identifiers."
	}
	return ids, ""
}

// list gathers key and key[] values, splitting comma separated entries and
// dropping blanks.
func list(q url.Values, key string) []string {
	var out []string
	for _, k := range []string{key, key + "[]"} {
		for _, v := range q[k] {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}

// scalar returns the first trimmed value for key. Blank values count as absent.
func scalar(q url.Values, key string) (string, bool) {
	vs, ok := q[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	v := strings.TrimSpace(vs[0])
	if v == "" {
		return "", false
	}
	return v, true
}

// FiltersMeta echoes the effective filter back to the client.
type FiltersMeta struct {
	Status         []visit.Status `json:"status"`
	RepID          []int64        `json:"repId"`
	HcpID          []int64        `json:"hcpId"`
	TerritoryID    []int64        `json:"territoryId"`
	DateFrom       *string        `json:"dateFrom"`
	DateTo         *string        `json:"dateTo"`
	Q              *string        `json:"q"`
	IncludeDeleted bool           `json:"includeDeleted"`
}

func filtersMeta(f visit.Filter) FiltersMeta {
	m := FiltersMeta{
		Status:         f.Statuses,
		RepID:          f.RepIDs,
		HcpID:          f.HcpIDs,
		TerritoryID:    f.TerritoryIDs,
		IncludeDeleted: f.IncludeDeleted,
	}
	if f.DateFrom != nil {
		s := visit.FormatDate(*f.DateFrom)
		m.DateFrom = &s
	}
	if f.DateTo != nil {
		s := visit.FormatDate(*f.DateTo)
		m.DateTo = &s
	}
	if f.Search != "" {
		s := f.Search
		m.Q = &s
	}
	return m
}
