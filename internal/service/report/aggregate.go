package report

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"fieldcrm-service/internal/domain/rep"
	"fieldcrm-service/internal/domain/report"
	"fieldcrm-service/internal/domain/visit"
)

// reportVisit is a report row with its product list decoded once.
type reportVisit struct {
	visit.ReportRow
	Products []visit.ProductLine
}

func decodeRows(rows []visit.ReportRow) []reportVisit {
	out := make([]reportVisit, len(rows))
	for i, r := range rows {
		out[i] = reportVisit{ReportRow: r, Products: visit.ParseProducts(r.ProductsJSON)}
	}
	return out
}

// mean accumulates a running average.
type mean struct {
	sum   float64
	count int64
}

func (m *mean) add(v float64) {
	m.sum += v
	m.count++
}

func (m mean) value() float64 {
	if m.count == 0 {
		return 0
	}
	return round2(m.sum / float64(m.count))
}

// tally is the per-group state shared by the overview, rep and territory rollups.
type tally struct {
	total, completed, scheduled, cancelled int64
	hcpVisits, pharmacyVisits              int64
	accounts                               map[string]struct{}
	hcps, pharmacies                       map[string]struct{}
	orders, rating                         mean
}

func newTally() *tally {
	return &tally{
		accounts:   map[string]struct{}{},
		hcps:       map[string]struct{}{},
		pharmacies: map[string]struct{}{},
	}
}

func (t *tally) add(v reportVisit) {
	t.total++
	switch v.Status {
	case visit.StatusCompleted:
		t.completed++
	case visit.StatusScheduled:
		t.scheduled++
	case visit.StatusCancelled:
		t.cancelled++
	}

	if acc, ok := v.Account(); ok {
		key := fmt.Sprintf("%s:%d", acc.Type, acc.ID)
		t.accounts[key] = struct{}{}
		if acc.Type == visit.AccountHcp {
			t.hcpVisits++
			t.hcps[key] = struct{}{}
		} else {
			t.pharmacyVisits++
			t.pharmacies[key] = struct{}{}
		}
	}

	if v.OrderValueJOD != nil && !math.IsNaN(*v.OrderValueJOD) {
		t.orders.add(*v.OrderValueJOD)
	}
	if v.Rating != nil {
		t.rating.add(float64(*v.Rating))
	}
}

func buildOverview(w report.Window, rows []reportVisit) report.Overview {
	t := newTally()
	for _, r := range rows {
		t.add(r)
	}
	return report.Overview{
		From: w.From,
		To:   w.To,
		Totals: report.Totals{
			TotalVisits:     t.total,
			CompletedVisits: t.completed,
			ScheduledVisits: t.scheduled,
			CancelledVisits: t.cancelled,
		},
		Accounts: report.Accounts{
			UniqueAccounts: len(t.accounts),
			HcpCount:       len(t.hcps),
			PharmacyCount:  len(t.pharmacies),
		},
		Orders: report.Orders{
			TotalOrderValueJOD: round2(t.orders.sum),
			AvgOrderValueJOD:   t.orders.value(),
		},
		Quality: report.Quality{AvgRating: t.rating.value()},
	}
}

// buildRepPerformance rolls visits up per rep, ordered by rep id. Territory
// names come from each rep's home territory.
func buildRepPerformance(rows []reportVisit, reps []rep.Profile, territories []rep.Territory) []report.RepPerformance {
	repsByID := make(map[int64]rep.Profile, len(reps))
	for _, p := range reps {
		repsByID[p.ID] = p
	}
	territoryNames := territoryNameIndex(territories)

	byRep := map[int64]*tally{}
	for _, r := range rows {
		if r.RepID == 0 {
			continue
		}
		t, ok := byRep[r.RepID]
		if !ok {
			t = newTally()
			byRep[r.RepID] = t
		}
		t.add(r)
	}

	out := make([]report.RepPerformance, 0, len(byRep))
	for repID, t := range byRep {
		row := report.RepPerformance{
			RepID:              repID,
			TerritoryNames:     []string{},
			TotalVisits:        t.total,
			CompletedVisits:    t.completed,
			ScheduledVisits:    t.scheduled,
			CancelledVisits:    t.cancelled,
			UniqueAccounts:     len(t.accounts),
			HcpVisits:          t.hcpVisits,
			PharmacyVisits:     t.pharmacyVisits,
			TotalOrderValueJOD: round2(t.orders.sum),
			AvgOrderValueJOD:   t.orders.value(),
			AvgRating:          t.rating.value(),
		}
		if p, ok := repsByID[repID]; ok {
			name, email := p.Name, p.Email
			row.RepName, row.RepEmail = &name, &email
			if p.TerritoryID != nil {
				if tn, ok := territoryNames[*p.TerritoryID]; ok && tn != "" {
					row.TerritoryNames = []string{tn}
				}
			}
		}
		out = append(out, row)
	}

	slices.SortFunc(out, func(a, b report.RepPerformance) int { return cmp.Compare(a.RepID, b.RepID) })
	return out
}

// buildTerritoryPerformance rolls visits up per territory, ordered by id.
func buildTerritoryPerformance(rows []reportVisit, territories []rep.Territory) []report.TerritoryPerformance {
	territoryNames := territoryNameIndex(territories)

	byTerritory := map[int64]*tally{}
	for _, r := range rows {
		if r.TerritoryID == 0 {
			continue
		}
		t, ok := byTerritory[r.TerritoryID]
		if !ok {
			t = newTally()
			byTerritory[r.TerritoryID] = t
		}
		t.add(r)
	}

	out := make([]report.TerritoryPerformance, 0, len(byTerritory))
	for id, t := range byTerritory {
		row := report.TerritoryPerformance{
			TerritoryID:        id,
			TotalVisits:        t.total,
			CompletedVisits:    t.completed,
			ScheduledVisits:    t.scheduled,
			CancelledVisits:    t.cancelled,
			UniqueAccounts:     len(t.accounts),
			TotalOrderValueJOD: round2(t.orders.sum),
			AvgOrderValueJOD:   t.orders.value(),
			AvgRating:          t.rating.value(),
		}
		if name, ok := territoryNames[id]; ok {
			row.TerritoryName = &name
		}
		out = append(out, row)
	}

	slices.SortFunc(out, func(a, b report.TerritoryPerformance) int { return cmp.Compare(a.TerritoryID, b.TerritoryID) })
	return out
}

type productTally struct {
	name     string
	visits   int64
	quantity float64
	orders   float64
}

// buildProductPerformance counts each product once per visit even when the
// visit lists it several times; quantities from every line are summed. The
// visit's order value is attributed in full to each product it mentions.
func buildProductPerformance(rows []reportVisit) []report.ProductPerformance {
	byKey := map[string]*productTally{}

	for _, r := range rows {
		seen := map[string]bool{}
		for _, line := range r.Products {
			key := line.Key()
			if key == "" {
				continue
			}
			t, ok := byKey[key]
			if !ok {
				t = &productTally{name: strings.TrimSpace(line.Name)}
				byKey[key] = t
			}
			if !seen[key] {
				seen[key] = true
				t.visits++
				if r.OrderValueJOD != nil {
					t.orders += *r.OrderValueJOD
				}
			}
			if line.Quantity != nil {
				t.quantity += *line.Quantity
			}
		}
	}

	out := make([]report.ProductPerformance, 0, len(byKey))
	for _, t := range byKey {
		p := report.ProductPerformance{
			ProductName:        t.name,
			VisitsCount:        t.visits,
			TotalQuantity:      round2(t.quantity),
			TotalOrderValueJOD: round2(t.orders),
		}
		if t.visits > 0 {
			p.AvgQuantityPerVisit = round2(t.quantity / float64(t.visits))
		}
		out = append(out, p)
	}

	slices.SortFunc(out, func(a, b report.ProductPerformance) int {
		if c := cmp.Compare(b.VisitsCount, a.VisitsCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductName, b.ProductName)
	})
	return out
}

func territoryNameIndex(territories []rep.Territory) map[int64]string {
	idx := make(map[int64]string, len(territories))
	for _, t := range territories {
		idx[t.ID] = t.Name
	}
	return idx
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
