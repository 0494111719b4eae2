// internal/domain/visit/entity.go
package visit

import (
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusScheduled, StatusCompleted, StatusCancelled}

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type AccountType string

const (
	AccountHcp      AccountType = "hcp"
	AccountPharmacy AccountType = "pharmacy"
)

func (t AccountType) IsValid() bool {
	return t == AccountHcp || t == AccountPharmacy
}

type Purpose string

const (
	PurposePromotion      Purpose = "promotion"
	PurposeOrderFollowup  Purpose = "order_followup"
	PurposeCollection     Purpose = "collection"
	PurposeProblemSolving Purpose = "problem_solving"
	PurposeTraining       Purpose = "training"
	PurposeOther          Purpose = "other"
)

var Purposes = []Purpose{
	PurposePromotion, PurposeOrderFollowup, PurposeCollection,
	PurposeProblemSolving, PurposeTraining, PurposeOther,
}

type Channel string

const (
	ChannelInPerson Channel = "in_person"
	ChannelPhone    Channel = "phone"
	ChannelOnline   Channel = "online"
)

var Channels = []Channel{ChannelInPerson, ChannelPhone, ChannelOnline}

// Location is a GPS fix captured by the field app.
type Location struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy"`
}

// Account is the single target of a visit: either an HCP or a pharmacy.
type Account struct {
	Type AccountType
	ID   int64
}

func HcpAccount(id int64) Account      { return Account{Type: AccountHcp, ID: id} }
func PharmacyAccount(id int64) Account { return Account{Type: AccountPharmacy, ID: id} }

// Visit is one field visit by a rep to an account.
type Visit struct {
	ID              int64
	VisitDate       time.Time
	Status          Status
	DurationMinutes int
	RepID           int64
	TerritoryID     int64
	IsDeleted       bool

	// Storage keeps both foreign keys nullable; use Account() to read the target.
	AccountType *AccountType
	HcpID       *int64
	PharmacyID  *int64

	Notes          *string
	CommitmentText *string
	Purpose        *Purpose
	Channel        *Channel
	ProductsJSON   *string
	NextVisitDate  *time.Time
	OrderValueJOD  *float64
	Rating         *int
	StartLocation  *Location
	EndLocation    *Location

	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined read-only lookups, populated by the repository.
	Rep       *RepRef
	Hcp       *HcpRef
	Pharmacy  *PharmacyRef
	Territory *TerritoryRef
}

// Account resolves the visit target. An explicit account type wins; legacy
// rows without one fall back to whichever foreign key is populated.
func (v *Visit) Account() (Account, bool) {
	if v.AccountType != nil {
		switch *v.AccountType {
		case AccountHcp:
			if v.HcpID != nil {
				return HcpAccount(*v.HcpID), true
			}
		case AccountPharmacy:
			if v.PharmacyID != nil {
				return PharmacyAccount(*v.PharmacyID), true
			}
		}
		return Account{}, false
	}
	if v.HcpID != nil {
		return HcpAccount(*v.HcpID), true
	}
	if v.PharmacyID != nil {
		return PharmacyAccount(*v.PharmacyID), true
	}
	return Account{}, false
}

// SetAccount stores the account as the discriminant plus exactly one foreign key.
func (v *Visit) SetAccount(a Account) {
	t := a.Type
	id := a.ID
	v.AccountType = &t
	v.HcpID, v.PharmacyID = nil, nil
	if t == AccountHcp {
		v.HcpID = &id
	} else {
		v.PharmacyID = &id
	}
}

type RepRef struct {
	ID    int64
	Name  string
	Email string
}

type HcpRef struct {
	ID        int64
	Name      string
	AreaTag   *string
	Specialty *string
	Phone     *string
	Email     *string
	Segment   *string
}

type PharmacyRef struct {
	ID    int64
	Name  string
	City  *string
	Area  *string
	Phone *string
}

type TerritoryRef struct {
	ID   int64
	Name string
	Code *string
}
