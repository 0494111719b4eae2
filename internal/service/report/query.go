// internal/service/report/query.go
package report

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"fieldcrm-service/internal/domain/visit"
)

const MsgInvalidQuery = "Invalid query parameters."

// Query is a validated report request.
type Query struct {
	From       time.Time
	To         time.Time
	SalesRepID *int64
	HcpID      *int64
}

// Filter compiles the query into a visit predicate. Soft-deleted visits are
// always excluded from reports.
func (q Query) Filter() visit.Filter {
	from, to := q.From, q.To
	f := visit.Filter{DateFrom: &from, DateTo: &to}
	if q.SalesRepID != nil {
		f.RepIDs = []int64{*q.SalesRepID}
	}
	if q.HcpID != nil {
		f.HcpIDs = []int64{*q.HcpID}
	}
	return f
}

// MonthWindow is the first and last calendar day of the month containing now.
func MonthWindow(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	from := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return from, to
}

// ParseQuery validates from/to and the optional narrowing ids. Missing
// bounds default to the current calendar month in loc.
func ParseQuery(values url.Values, now time.Time, loc *time.Location) (Query, []string) {
	var errs []string
	if loc == nil {
		loc = time.UTC
	}
	from, to := MonthWindow(now.In(loc))
	q := Query{From: from, To: to}

	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		if d, ok := visit.ParseDate(raw); ok {
			q.From = d
		} else {
			errs = append(errs, "from must be a valid ISO-8601 date string.")
		}
	}
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		if d, ok := visit.ParseDate(raw); ok {
			q.To = d
		} else {
			errs = append(errs, "to must be a valid ISO-8601 date string.")
		}
	}
	if len(errs) == 0 && q.From.After(q.To) {
		errs = append(errs, "from must be on or before to.")
	}

	var msg string
	if q.SalesRepID, msg = positiveInt(values, "salesRepId"); msg != "" {
		errs = append(errs, msg)
	}
	if q.HcpID, msg = positiveInt(values, "hcpId"); msg != "" {
		errs = append(errs, msg)
	}

	return q, errs
}

func positiveInt(values url.Values, key string) (*int64, string) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, ""
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return nil, key + " must be a positive integer."
	}
	return &n, ""
}
