// internal/service/access/policy.go
package access

import (
	"strings"

	"fieldcrm-service/internal/domain/rep"
	"fieldcrm-service/internal/domain/visit"
)

type Role string

const (
	RoleSalesManager Role = "sales_manager"
	RoleSalesRep     Role = "sales_rep"
	RoleMedicalRep   Role = "medical_rep"
)

// roleAliases maps every role slug the identity provider issues onto a
// canonical role. Slugs not listed here carry no visit access.
var roleAliases = map[string]Role{
	"sales_manager":           RoleSalesManager,
	"sales-manager":           RoleSalesManager,
	"sales-marketing-manager": RoleSalesManager,
	"admin":                   RoleSalesManager,
	"super_admin":             RoleSalesManager,
	"sales_rep":               RoleSalesRep,
	"sales-rep":               RoleSalesRep,
	"salesman":                RoleSalesRep,
	"medical_rep":             RoleMedicalRep,
	"medical-rep":             RoleMedicalRep,
	"medical-sales-rep":       RoleMedicalRep,
}

// NormalizeRole resolves a slug to its canonical role.
func NormalizeRole(slug string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(slug))]
	return r, ok
}

// Capability is what a canonical role may do with visits.
type Capability struct {
	// RepScoped callers only ever see and modify their own visits.
	RepScoped bool
	CanCreate bool
}

var policies = map[Role]Capability{
	RoleSalesManager: {RepScoped: false, CanCreate: true},
	RoleSalesRep:     {RepScoped: true, CanCreate: true},
	RoleMedicalRep:   {RepScoped: true, CanCreate: true},
}

func PolicyFor(r Role) Capability {
	return policies[r]
}

// rank orders roles from broadest to narrowest visibility.
var rank = map[Role]int{
	RoleSalesManager: 0,
	RoleSalesRep:     1,
	RoleMedicalRep:   1,
}

// PrimaryRole picks the broadest known role from a token's role list.
func PrimaryRole(slugs []string) (Role, bool) {
	var best Role
	found := false
	for _, s := range slugs {
		r, ok := NormalizeRole(s)
		if !ok {
			continue
		}
		if !found || rank[r] < rank[best] {
			best = r
			found = true
		}
	}
	return best, found
}

// AllowedAccountType is the only account type a rep of the given kind may
// create visits for.
func AllowedAccountType(t rep.RepType) visit.AccountType {
	if t == rep.TypeMedicalRep {
		return visit.AccountHcp
	}
	return visit.AccountPharmacy
}

// repTypeFor prefers the profile's own classification and falls back to the
// role the token carried.
func repTypeFor(role Role, p *rep.Profile) rep.RepType {
	if p != nil && p.RepType != "" {
		return p.RepType
	}
	if role == RoleMedicalRep {
		return rep.TypeMedicalRep
	}
	return rep.TypeSalesRep
}
