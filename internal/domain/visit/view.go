// internal/domain/visit/view.go
package visit

import "time"

const dateLayout = "2006-01-02"

// View is the wire shape of a visit.
type View struct {
	ID              int64          `json:"id"`
	VisitDate       string         `json:"visitDate"`
	Status          Status         `json:"status"`
	DurationMinutes int            `json:"durationMinutes"`
	Notes           *string        `json:"notes"`
	RepID           int64          `json:"repId"`
	Rep             *RepView       `json:"rep"`
	Hcp             *HcpView       `json:"hcp"`
	Pharmacy        *PharmacyView  `json:"pharmacy"`
	AccountType     *AccountType   `json:"accountType"`
	Account         *AccountView   `json:"account"`
	HcpID           *int64         `json:"hcpId"`
	PharmacyID      *int64         `json:"pharmacyId"`
	VisitPurpose    *Purpose       `json:"visitPurpose"`
	VisitChannel    *Channel       `json:"visitChannel"`
	Products        []ProductLine  `json:"products"`
	CommitmentText  *string        `json:"commitmentText"`
	NextVisitDate   *string        `json:"nextVisitDate"`
	OrderValueJOD   *float64       `json:"orderValueJOD"`
	Rating          *int           `json:"rating"`
	StartLocation   *Location      `json:"startLocation"`
	EndLocation     *Location      `json:"endLocation"`
	TerritoryID     int64          `json:"territoryId"`
	Territory       *TerritoryView `json:"territory"`
	IsDeleted       bool           `json:"isDeleted"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type RepView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type HcpView struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	AreaTag   *string `json:"areaTag"`
	Specialty *string `json:"specialty"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
}

type PharmacyView struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	City  *string `json:"city"`
	Area  *string `json:"area"`
	Phone *string `json:"phone"`
}

type TerritoryView struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Code *string `json:"code"`
}

// AccountView flattens whichever account the visit targets.
type AccountView struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Type    AccountType `json:"type"`
	AreaTag *string     `json:"areaTag"`
	Segment *string     `json:"segment"`
}

const pharmacySegment = "Pharmacy"

// ToView builds the wire shape. Malformed product JSON renders as null.
func ToView(v *Visit) View {
	out := View{
		ID:              v.ID,
		VisitDate:       FormatDate(v.VisitDate),
		Status:          v.Status,
		DurationMinutes: v.DurationMinutes,
		Notes:           v.Notes,
		RepID:           v.RepID,
		HcpID:           v.HcpID,
		PharmacyID:      v.PharmacyID,
		VisitPurpose:    v.Purpose,
		VisitChannel:    v.Channel,
		Products:        ParseProducts(v.ProductsJSON),
		CommitmentText:  v.CommitmentText,
		OrderValueJOD:   v.OrderValueJOD,
		Rating:          v.Rating,
		StartLocation:   v.StartLocation,
		EndLocation:     v.EndLocation,
		TerritoryID:     v.TerritoryID,
		IsDeleted:       v.IsDeleted,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
	if v.NextVisitDate != nil {
		d := FormatDate(*v.NextVisitDate)
		out.NextVisitDate = &d
	}

	if v.Rep != nil {
		out.Rep = &RepView{ID: v.Rep.ID, Name: v.Rep.Name, Email: v.Rep.Email}
	}
	if v.Hcp != nil {
		out.Hcp = &HcpView{
			ID: v.Hcp.ID, Name: v.Hcp.Name, AreaTag: v.Hcp.AreaTag,
			Specialty: v.Hcp.Specialty, Phone: v.Hcp.Phone, Email: v.Hcp.Email,
		}
	}
	if v.Pharmacy != nil {
		out.Pharmacy = &PharmacyView{
			ID: v.Pharmacy.ID, Name: v.Pharmacy.Name, City: v.Pharmacy.City,
			Area: v.Pharmacy.Area, Phone: v.Pharmacy.Phone,
		}
	}
	if v.Territory != nil {
		out.Territory = &TerritoryView{ID: v.Territory.ID, Name: v.Territory.Name, Code: v.Territory.Code}
	}

	if acc, ok := v.Account(); ok {
		t := acc.Type
		out.AccountType = &t
		out.Account = accountView(v, acc)
	} else {
		out.AccountType = v.AccountType
	}

	return out
}

func accountView(v *Visit, acc Account) *AccountView {
	av := &AccountView{ID: acc.ID, Type: acc.Type}
	switch acc.Type {
	case AccountHcp:
		if v.Hcp != nil {
			av.Name = v.Hcp.Name
			av.AreaTag = v.Hcp.AreaTag
			av.Segment = v.Hcp.Segment
		}
	case AccountPharmacy:
		segment := pharmacySegment
		av.Segment = &segment
		if v.Pharmacy != nil {
			av.Name = v.Pharmacy.Name
			av.AreaTag = v.Pharmacy.Area
		}
	}
	return av
}

// ToViews maps a slice, keeping an empty result as [] on the wire.
func ToViews(visits []*Visit) []View {
	out := make([]View, 0, len(visits))
	for _, v := range visits {
		out = append(out, ToView(v))
	}
	return out
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate accepts a calendar date or a full RFC 3339 timestamp and returns
// midnight UTC of that calendar date.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
