package visit

import (
	"net/url"
	"testing"

	"fieldcrm-service/internal/domain/visit"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseListQueryDefaults(t *testing.T) {
	params, errs := ParseListQuery(url.Values{}, DefaultLimits)
	assert.Empty(t, errs)
	assert.Equal(t, visit.Page{Number: 1, Size: DefaultPageSize}, params.Page)
	assert.Equal(t, visit.DefaultSort, params.Sort)
	assert.Equal(t, visit.Filter{}, params.Filter)
}

func TestParseListQueryFilters(t *testing.T) {
	q := url.Values{
		"status":         {"completed,scheduled"},
		"repId[]":        {"3", "4"},
		"territoryId":    {" 1 , ,2"},
		"dateFrom":       {"2024-05-01"},
		"dateTo":         {"2024-05-31T10:00:00Z"},
		"q":              {"  alpha "},
		"includeDeleted": {"true"},
		"sortBy":         {"hcpName"},
		"sortDirection":  {"ASC"},
		"page":           {"3"},
		"pageSize":       {"10"},
	}

	params, errs := ParseListQuery(q, DefaultLimits)
	assert.Empty(t, errs)

	from, to := day("2024-05-01"), day("2024-05-31")
	want := visit.ListParams{
		Filter: visit.Filter{
			Statuses:       []visit.Status{visit.StatusCompleted, visit.StatusScheduled},
			RepIDs:         []int64{3, 4},
			TerritoryIDs:   []int64{1, 2},
			DateFrom:       &from,
			DateTo:         &to,
			Search:         "alpha",
			IncludeDeleted: true,
		},
		Page: visit.Page{Number: 3, Size: 10},
		Sort: visit.Sort{Field: visit.SortHcpName, Direction: visit.SortAsc},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("ParseListQuery() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseListQueryCollectsErrors(t *testing.T) {
	q := url.Values{
		"page":           {"0"},
		"pageSize":       {"500"},
		"sortBy":         {"notes"},
		"sortDirection":  {"sideways"},
		"status":         {"done"},
		"repId":          {"a,b,-1"},
		"dateFrom":       {"yesterday"},
		"includeDeleted": {"maybe"},
	}

	_, errs := ParseListQuery(q, DefaultLimits)
	assert.Equal(t, []string{
		"page must be a positive integer.",
		"pageSize must be less than or equal to 100.",
		"sortBy contains an unsupported field.",
		`sortDirection must be either "asc" or "desc".`,
		"status must be one of: scheduled, completed, cancelled",
		"repId must contain integer identifiers.",
		"dateFrom must be a valid ISO-8601 date string.",
		"includeDeleted must be a boolean.",
	}, errs)
}

func TestParseListQueryDateOrder(t *testing.T) {
	_, errs := ParseListQuery(url.Values{"dateFrom": {"2024-06-01"}, "dateTo": {"2024-05-01"}}, DefaultLimits)
	assert.Equal(t, []string{"dateFrom must be on or before dateTo."}, errs)
}

func TestParseListQueryHonoursLimits(t *testing.T) {
	limits := Limits{DefaultPageSize: 10, MaxPageSize: 20}

	params, errs := ParseListQuery(url.Values{}, limits)
	assert.Empty(t, errs)
	assert.Equal(t, 10, params.Page.Size)

	_, errs = ParseListQuery(url.Values{"pageSize": {"21"}}, limits)
	assert.Equal(t, []string{"pageSize must be less than or equal to 20."}, errs)
}

func TestParseLatestQuery(t *testing.T) {
	params, errs := ParseLatestQuery(url.Values{"page": {"4"}, "sortBy": {"status"}}, DefaultLimits)
	assert.Empty(t, errs)
	assert.Equal(t, visit.Page{Number: 1, Size: 5}, params.Page)
	assert.Equal(t, visit.DefaultSort, params.Sort)

	params, _ = ParseLatestQuery(url.Values{"pageSize": {"80"}}, DefaultLimits)
	assert.Equal(t, 25, params.Page.Size)
}

func TestFiltersMeta(t *testing.T) {
	from := day("2024-05-01")
	m := filtersMeta(visit.Filter{RepIDs: []int64{1}, DateFrom: &from, Search: "x"})

	assert.Equal(t, []int64{1}, m.RepID)
	assert.Equal(t, ptr("2024-05-01"), m.DateFrom)
	assert.Nil(t, m.DateTo)
	assert.Equal(t, ptr("x"), m.Q)
}
