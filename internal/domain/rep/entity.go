// internal/domain/rep/entity.go
package rep

type RepType string

const (
	TypeSalesRep   RepType = "sales_rep"
	TypeMedicalRep RepType = "medical_rep"
)

// Profile is a sales representative row, looked up by login email.
type Profile struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	TerritoryID *int64  `json:"territoryId"`
	RepType     RepType `json:"repType"`
}

// Territory is the read-only lookup used for report labels.
type Territory struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Code *string `json:"code"`
}
