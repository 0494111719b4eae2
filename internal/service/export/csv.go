// internal/service/export/csv.go
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fieldcrm-service/internal/domain/report"
	"fieldcrm-service/internal/domain/visit"
)

var VisitsHeader = []string{
	"ID",
	"Visit Date",
	"Status",
	"Duration (minutes)",
	"Sales Rep",
	"Sales Rep Email",
	"HCP",
	"HCP Area Tag",
	"Territory",
	"Territory Code",
	"Notes",
}

var RepPerformanceHeader = []string{
	"Rep Name",
	"Rep Email",
	"Territories",
	"Total Visits",
	"Completed Visits",
	"Scheduled Visits",
	"Cancelled Visits",
	"Unique Accounts",
	"Total Order Value (JOD)",
	"Avg Order Value (JOD)",
	"Avg Rating",
}

// WriteVisitsCSV writes the header and one row per visit, in the given order.
func WriteVisitsCSV(w io.Writer, views []visit.View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(VisitsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, v := range views {
		var repName, repEmail, hcpName, hcpArea, territory, territoryCode string
		if v.Rep != nil {
			repName, repEmail = v.Rep.Name, v.Rep.Email
		}
		if v.Hcp != nil {
			hcpName, hcpArea = v.Hcp.Name, deref(v.Hcp.AreaTag)
		}
		if v.Territory != nil {
			territory, territoryCode = v.Territory.Name, deref(v.Territory.Code)
		}

		row := []string{
			strconv.FormatInt(v.ID, 10),
			v.VisitDate,
			string(v.Status),
			strconv.Itoa(v.DurationMinutes),
			repName,
			repEmail,
			hcpName,
			hcpArea,
			territory,
			territoryCode,
			deref(v.Notes),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write visit %d: %w", v.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteRepPerformanceCSV writes the rep performance report with its own
// column set. Territory names are joined with "; ".
func WriteRepPerformanceCSV(w io.Writer, rows []report.RepPerformance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RepPerformanceHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range rows {
		if err := cw.Write(repPerformanceRecord(r)); err != nil {
			return fmt.Errorf("failed to write rep %d: %w", r.RepID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func repPerformanceRecord(r report.RepPerformance) []string {
	return []string{
		deref(r.RepName),
		deref(r.RepEmail),
		strings.Join(r.TerritoryNames, "; "),
		strconv.FormatInt(r.TotalVisits, 10),
		strconv.FormatInt(r.CompletedVisits, 10),
		strconv.FormatInt(r.ScheduledVisits, 10),
		strconv.FormatInt(r.CancelledVisits, 10),
		strconv.Itoa(r.UniqueAccounts),
		formatNumber(r.TotalOrderValueJOD),
		formatNumber(r.AvgOrderValueJOD),
		formatNumber(r.AvgRating),
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
