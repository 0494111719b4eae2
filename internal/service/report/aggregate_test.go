package report

import (
	"testing"

	"fieldcrm-service/internal/domain/rep"
	"fieldcrm-service/internal/domain/report"
	"fieldcrm-service/internal/domain/visit"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func hcpRow(id, repID, territoryID, hcpID int64, status visit.Status) visit.ReportRow {
	t := visit.AccountHcp
	return visit.ReportRow{ID: id, RepID: repID, TerritoryID: territoryID, Status: status, AccountType: &t, HcpID: ptr(hcpID)}
}

func pharmacyRow(id, repID, territoryID, pharmacyID int64, status visit.Status) visit.ReportRow {
	t := visit.AccountPharmacy
	return visit.ReportRow{ID: id, RepID: repID, TerritoryID: territoryID, Status: status, AccountType: &t, PharmacyID: ptr(pharmacyID)}
}

func sampleRows() []visit.ReportRow {
	r1 := hcpRow(1, 1, 10, 100, visit.StatusCompleted)
	r1.OrderValueJOD = ptr(10.0)
	r1.Rating = ptr(4)
	r1.ProductsJSON = ptr(`[{"name":"Panadol","quantity":2},{"name":" panadol ","quantity":"1"},{"name":"Brufen","quantity":5}]`)

	r2 := hcpRow(2, 1, 10, 100, visit.StatusScheduled)
	r2.ProductsJSON = ptr(`not json`)

	r3 := pharmacyRow(3, 2, 20, 7, visit.StatusCompleted)
	r3.OrderValueJOD = ptr(25.5)
	r3.Rating = ptr(5)
	r3.ProductsJSON = ptr(`[{"name":"Brufen","quantity":1},{"name":"Zyrtec"}]`)

	r4 := pharmacyRow(4, 2, 20, 8, visit.StatusCancelled)
	r4.Rating = ptr(2)

	// legacy row with no discriminant
	r5 := visit.ReportRow{ID: 5, RepID: 1, TerritoryID: 10, Status: visit.StatusCompleted, HcpID: ptr(int64(101))}

	return []visit.ReportRow{r1, r2, r3, r4, r5}
}

func TestBuildOverview(t *testing.T) {
	got := buildOverview(report.Window{From: "2024-05-01", To: "2024-05-31"}, decodeRows(sampleRows()))

	want := report.Overview{
		From:     "2024-05-01",
		To:       "2024-05-31",
		Totals:   report.Totals{TotalVisits: 5, CompletedVisits: 3, ScheduledVisits: 1, CancelledVisits: 1},
		Accounts: report.Accounts{UniqueAccounts: 4, HcpCount: 2, PharmacyCount: 2},
		Orders:   report.Orders{TotalOrderValueJOD: 35.5, AvgOrderValueJOD: 17.75},
		Quality:  report.Quality{AvgRating: 3.67},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("buildOverview() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOverviewEmpty(t *testing.T) {
	got := buildOverview(report.Window{}, nil)
	assert.Zero(t, got.Totals.TotalVisits)
	assert.Zero(t, got.Orders.AvgOrderValueJOD)
	assert.Zero(t, got.Quality.AvgRating)
}

func TestBuildRepPerformance(t *testing.T) {
	reps := []rep.Profile{
		{ID: 1, Name: "Rep One", Email: "rep1@example.com", TerritoryID: ptr(int64(10))},
		{ID: 2, Name: "Rep Two", Email: "rep2@example.com"},
	}
	territories := []rep.Territory{{ID: 10, Name: "North"}, {ID: 20, Name: "South"}}

	got := buildRepPerformance(decodeRows(sampleRows()), reps, territories)
	require.Len(t, got, 2)

	one, two := got[0], got[1]
	assert.Equal(t, int64(1), one.RepID)
	assert.Equal(t, ptr("Rep One"), one.RepName)
	assert.Equal(t, []string{"North"}, one.TerritoryNames)
	assert.Equal(t, int64(3), one.TotalVisits)
	assert.Equal(t, 2, one.UniqueAccounts)
	assert.Equal(t, int64(3), one.HcpVisits)
	assert.Zero(t, one.PharmacyVisits)
	assert.Equal(t, 10.0, one.AvgOrderValueJOD)

	assert.Equal(t, int64(2), two.RepID)
	assert.Equal(t, []string{}, two.TerritoryNames)
	assert.Equal(t, int64(2), two.PharmacyVisits)
	assert.Equal(t, int64(1), two.CancelledVisits)
	assert.Equal(t, 25.5, two.TotalOrderValueJOD)
	assert.Equal(t, 3.5, two.AvgRating)
}

func TestBuildRepPerformanceUnknownRep(t *testing.T) {
	got := buildRepPerformance(decodeRows([]visit.ReportRow{hcpRow(1, 9, 10, 1, visit.StatusCompleted)}), nil, nil)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].RepName)
	assert.Nil(t, got[0].RepEmail)
}

func TestBuildTerritoryPerformance(t *testing.T) {
	got := buildTerritoryPerformance(decodeRows(sampleRows()), []rep.Territory{{ID: 20, Name: "South"}})
	require.Len(t, got, 2)

	assert.Equal(t, int64(10), got[0].TerritoryID)
	assert.Nil(t, got[0].TerritoryName)
	assert.Equal(t, int64(3), got[0].TotalVisits)

	assert.Equal(t, int64(20), got[1].TerritoryID)
	assert.Equal(t, ptr("South"), got[1].TerritoryName)
	assert.Equal(t, 2, got[1].UniqueAccounts)
}

func TestBuildProductPerformance(t *testing.T) {
	got := buildProductPerformance(decodeRows(sampleRows()))

	want := []report.ProductPerformance{
		{ProductName: "Brufen", VisitsCount: 2, TotalQuantity: 6, AvgQuantityPerVisit: 3, TotalOrderValueJOD: 35.5},
		{ProductName: "Panadol", VisitsCount: 1, TotalQuantity: 3, AvgQuantityPerVisit: 3, TotalOrderValueJOD: 10},
		{ProductName: "Zyrtec", VisitsCount: 1, TotalQuantity: 0, AvgQuantityPerVisit: 0, TotalOrderValueJOD: 25.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("buildProductPerformance() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildProductPerformanceSkipsStrayElements(t *testing.T) {
	r1 := hcpRow(1, 1, 10, 100, visit.StatusCompleted)
	r1.OrderValueJOD = ptr(8.0)
	r1.ProductsJSON = ptr(`[{"name":"Panadol","quantity":2}, "legacy free text", 7]`)

	r2 := hcpRow(2, 1, 10, 101, visit.StatusCompleted)
	r2.ProductsJSON = ptr(`[{"name":123,"quantity":1}]`)

	got := buildProductPerformance(decodeRows([]visit.ReportRow{r1, r2}))

	want := []report.ProductPerformance{
		{ProductName: "123", VisitsCount: 1, TotalQuantity: 1, AvgQuantityPerVisit: 1},
		{ProductName: "Panadol", VisitsCount: 1, TotalQuantity: 2, AvgQuantityPerVisit: 2, TotalOrderValueJOD: 8},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("buildProductPerformance() mismatch (-want +got):\n%s", diff)
	}
}
