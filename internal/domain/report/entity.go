// internal/domain/report/entity.go
package report

// Window is the inclusive calendar date range a report covers.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type RepDayCount struct {
	SalesRepID int64  `json:"salesRepId"`
	Date       string `json:"date"`
	Count      int64  `json:"count"`
}

type HcpCount struct {
	HcpID *int64 `json:"hcpId"`
	Count int64  `json:"count"`
}

type VisitsReport struct {
	BySalesRepPerDay []RepDayCount `json:"bySalesRepPerDay"`
	ByHcp            []HcpCount    `json:"byHcp"`
}

type Totals struct {
	TotalVisits     int64 `json:"totalVisits"`
	CompletedVisits int64 `json:"completedVisits"`
	ScheduledVisits int64 `json:"scheduledVisits"`
	CancelledVisits int64 `json:"cancelledVisits"`
}

type Accounts struct {
	UniqueAccounts int `json:"uniqueAccounts"`
	HcpCount       int `json:"hcpCount"`
	PharmacyCount  int `json:"pharmacyCount"`
}

type Orders struct {
	TotalOrderValueJOD float64 `json:"totalOrderValueJOD"`
	AvgOrderValueJOD   float64 `json:"avgOrderValueJOD"`
}

type Quality struct {
	AvgRating float64 `json:"avgRating"`
}

type Overview struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Totals   Totals   `json:"totals"`
	Accounts Accounts `json:"accounts"`
	Orders   Orders   `json:"orders"`
	Quality  Quality  `json:"quality"`
}

type RepPerformance struct {
	RepID              int64    `json:"repId"`
	RepName            *string  `json:"repName"`
	RepEmail           *string  `json:"repEmail"`
	TerritoryNames     []string `json:"territoryNames"`
	TotalVisits        int64    `json:"totalVisits"`
	CompletedVisits    int64    `json:"completedVisits"`
	ScheduledVisits    int64    `json:"scheduledVisits"`
	CancelledVisits    int64    `json:"cancelledVisits"`
	UniqueAccounts     int      `json:"uniqueAccounts"`
	HcpVisits          int64    `json:"hcpVisits"`
	PharmacyVisits     int64    `json:"pharmacyVisits"`
	TotalOrderValueJOD float64  `json:"totalOrderValueJOD"`
	AvgOrderValueJOD   float64  `json:"avgOrderValueJOD"`
	AvgRating          float64  `json:"avgRating"`
}

type ProductPerformance struct {
	ProductName         string  `json:"productName"`
	VisitsCount         int64   `json:"visitsCount"`
	TotalQuantity       float64 `json:"totalQuantity"`
	AvgQuantityPerVisit float64 `json:"avgQuantityPerVisit"`
	TotalOrderValueJOD  float64 `json:"totalOrderValueJOD"`
}

type TerritoryPerformance struct {
	TerritoryID        int64   `json:"territoryId"`
	TerritoryName      *string `json:"territoryName"`
	TotalVisits        int64   `json:"totalVisits"`
	CompletedVisits    int64   `json:"completedVisits"`
	ScheduledVisits    int64   `json:"scheduledVisits"`
	CancelledVisits    int64   `json:"cancelledVisits"`
	UniqueAccounts     int     `json:"uniqueAccounts"`
	TotalOrderValueJOD float64 `json:"totalOrderValueJOD"`
	AvgOrderValueJOD   float64 `json:"avgOrderValueJOD"`
	AvgRating          float64 `json:"avgRating"`
}
