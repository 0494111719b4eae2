package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"fieldcrm-service/internal/domain/report"
	"fieldcrm-service/internal/domain/visit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteVisitsCSV(t *testing.T) {
	views := []visit.View{
		{
			ID:              7,
			VisitDate:       "2024-05-11",
			Status:          visit.StatusCompleted,
			DurationMinutes: 40,
			Notes:           ptr("said \"yes\", then left"),
			Rep:             &visit.RepView{ID: 1, Name: "Rep One", Email: "rep1@example.com"},
			Hcp:             &visit.HcpView{ID: 3, Name: "Dr Alpha", AreaTag: ptr("Abdoun")},
			Territory:       &visit.TerritoryView{ID: 1, Name: "North", Code: ptr("N1")},
		},
		{ID: 8, VisitDate: "2024-05-10", Status: visit.StatusScheduled},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteVisitsCSV(&buf, views))

	records := readCSV(t, &buf)
	require.Len(t, records, 3)
	assert.Equal(t, VisitsHeader, records[0])
	assert.Equal(t, []string{
		"7", "2024-05-11", "completed", "40", "Rep One", "rep1@example.com",
		"Dr Alpha", "Abdoun", "North", "N1", `said "yes", then left`,
	}, records[1])
	assert.Equal(t, []string{"8", "2024-05-10", "scheduled", "0", "", "", "", "", "", "", ""}, records[2])
}

func TestWriteVisitsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVisitsCSV(&buf, nil))
	assert.Equal(t, [][]string{VisitsHeader}, readCSV(t, &buf))
}

func TestWriteRepPerformanceCSV(t *testing.T) {
	rows := []report.RepPerformance{{
		RepID:              1,
		RepName:            ptr("Rep One"),
		TerritoryNames:     []string{"North", "East"},
		TotalVisits:        4,
		CompletedVisits:    3,
		UniqueAccounts:     2,
		TotalOrderValueJOD: 120.5,
		AvgOrderValueJOD:   40.17,
		AvgRating:          4,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteRepPerformanceCSV(&buf, rows))

	records := readCSV(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, RepPerformanceHeader, records[0])
	assert.Equal(t, []string{"Rep One", "", "North; East", "4", "3", "0", "0", "2", "120.5", "40.17", "4"}, records[1])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteVisitsCSVPropagatesWriteErrors(t *testing.T) {
	err := WriteVisitsCSV(failingWriter{}, []visit.View{{ID: 1}})
	assert.ErrorContains(t, err, "disk full")
}
