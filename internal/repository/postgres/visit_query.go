// internal/repository/postgres/visit_query.go
package postgres

import (
	"fmt"
	"strings"

	"fieldcrm-service/internal/domain/visit"

	"github.com/lib/pq"
)

const visitFrom = `
		FROM visits v
		LEFT JOIN sales_reps r ON r.id = v.rep_id
		LEFT JOIN hcps h ON h.id = v.hcp_id
		LEFT JOIN pharmacies p ON p.id = v.pharmacy_id
		LEFT JOIN territories t ON t.id = v.territory_id
`

const visitColumns = `
		v.id, v.visit_date, v.status, v.duration_minutes, v.rep_id, v.territory_id,
		v.is_deleted, v.account_type, v.hcp_id, v.pharmacy_id, v.notes,
		v.commitment_text, v.visit_purpose, v.visit_channel, v.products_json,
		v.next_visit_date, v.order_value_jod, v.rating, v.start_location,
		v.end_location, v.created_at, v.updated_at,
		r.id, r.name, r.email,
		h.id, h.name, h.area_tag, h.specialty, h.phone, h.email, h.segment,
		p.id, p.name, p.city, p.area, p.phone,
		t.id, t.name, t.code
`

var sortColumns = map[visit.SortField]string{
	visit.SortVisitDate:       "v.visit_date",
	visit.SortStatus:          "v.status",
	visit.SortDurationMinutes: "v.duration_minutes",
	visit.SortHcpName:         "h.name",
	visit.SortRepName:         "r.name",
	visit.SortTerritoryName:   "t.name",
}

var groupColumns = map[visit.GroupKey]string{
	visit.GroupByRep:  "v.rep_id",
	visit.GroupByDate: "v.visit_date",
	visit.GroupByHcp:  "v.hcp_id",
}

// groupOrder is the ORDER BY precedence for grouped counts.
var groupOrder = []visit.GroupKey{visit.GroupByDate, visit.GroupByRep, visit.GroupByHcp}

// buildVisitWhere compiles a filter into a WHERE clause over the visitFrom
// joins. Placeholders start at $1.
func buildVisitWhere(f visit.Filter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if !f.IncludeDeleted {
		conditions = append(conditions, "v.is_deleted = FALSE")
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("v.status = ANY($%d)", argPos))
		args = append(args, pq.Array(statuses))
		argPos++
	}

	if len(f.RepIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("v.rep_id = ANY($%d)", argPos))
		args = append(args, pq.Array(f.RepIDs))
		argPos++
	}

	if len(f.HcpIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("v.hcp_id = ANY($%d)", argPos))
		args = append(args, pq.Array(f.HcpIDs))
		argPos++
	}

	if len(f.TerritoryIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("v.territory_id = ANY($%d)", argPos))
		args = append(args, pq.Array(f.TerritoryIDs))
		argPos++
	}

	if f.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("v.visit_date >= $%d::date", argPos))
		args = append(args, f.DateFrom.Format("2006-01-02"))
		argPos++
	}

	if f.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("v.visit_date <= $%d::date", argPos))
		args = append(args, f.DateTo.Format("2006-01-02"))
		argPos++
	}

	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(h.name ILIKE $%[1]d OR h.area_tag ILIKE $%[1]d OR r.name ILIKE $%[1]d OR t.name ILIKE $%[1]d)",
			argPos,
		))
		args = append(args, "%"+escapeLike(f.Search)+"%")
		argPos++
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// buildVisitOrder always appends v.id ASC so paging is stable. Unknown
// fields fall back to the default sort.
func buildVisitOrder(s visit.Sort) string {
	col, ok := sortColumns[s.Field]
	if !ok {
		col = sortColumns[visit.DefaultSort.Field]
	}
	dir := "DESC"
	if s.Direction == visit.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s NULLS LAST, v.id ASC", col, dir)
}

// buildGroupBy returns the select list, GROUP BY and ORDER BY fragments for
// the requested keys, deduplicated.
func buildGroupBy(keys []visit.GroupKey) ([]visit.GroupKey, string, string, error) {
	seen := map[visit.GroupKey]bool{}
	for _, k := range keys {
		if _, ok := groupColumns[k]; !ok {
			return nil, "", "", fmt.Errorf("unknown group key %q", k)
		}
		seen[k] = true
	}
	if len(seen) == 0 {
		return nil, "", "", fmt.Errorf("at least one group key is required")
	}

	var ordered []visit.GroupKey
	var cols []string
	for _, k := range groupOrder {
		if seen[k] {
			ordered = append(ordered, k)
			cols = append(cols, groupColumns[k])
		}
	}

	list := strings.Join(cols, ", ")
	orderBy := make([]string, len(cols))
	for i, c := range cols {
		orderBy[i] = c + " ASC NULLS LAST"
	}
	return ordered, list, strings.Join(orderBy, ", "), nil
}

// escapeLike escapes LIKE wildcards so the search is a plain substring match.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
