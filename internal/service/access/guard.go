// internal/service/access/guard.go
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"fieldcrm-service/internal/domain/rep"
	"fieldcrm-service/internal/domain/visit"
	xerrors "fieldcrm-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	MsgInsufficientPermissions = "Insufficient permissions."
	MsgProfileMissing          = "Your sales rep profile was not found. Please ask an admin to set up your Sales Rep record before creating visits."
	MsgTerritoryNotAssigned    = "You are not assigned to this territory."
	MsgSalesRepPharmacyOnly    = "Sales reps can only create pharmacy visits."
	MsgMedicalRepHcpOnly       = "Medical reps can only create HCP visits."
)

// Caller is the authenticated identity as carried by the access token.
type Caller struct {
	UserID int64
	Email  string
	Roles  []string
}

// ProfileSource looks up rep profiles and territory assignments.
type ProfileSource interface {
	FindRepByEmail(ctx context.Context, email string) (*rep.Profile, error)
	ListAssignedTerritoryIDs(ctx context.Context, email string) ([]int64, error)
}

// ProfileCache is an optional read-through cache in front of ProfileSource.
type ProfileCache interface {
	GetProfile(ctx context.Context, email string) (*rep.Profile, bool)
	SetProfile(ctx context.Context, p *rep.Profile)
	GetTerritories(ctx context.Context, email string) ([]int64, bool)
	SetTerritories(ctx context.Context, email string, ids []int64)
}

// Scope is the caller's effective row visibility.
type Scope struct {
	Role       Role
	Capability Capability
	// Rep is set for rep-scoped callers with a profile. It may be nil only
	// when resolved for create, where the caller gets a clearer error later.
	Rep *rep.Profile
}

func (s *Scope) RepScoped() bool {
	return s.Capability.RepScoped
}

// Apply overwrites any client supplied rep filter with the caller's own rep.
func (s *Scope) Apply(f visit.Filter) visit.Filter {
	if !s.RepScoped() {
		return f
	}
	if s.Rep == nil {
		// Unreachable through Resolve; match nothing rather than everything.
		return f.WithRepIDs(0)
	}
	return f.WithRepIDs(s.Rep.ID)
}

// RepType is the sub-role that decides which account type the rep may visit.
func (s *Scope) RepType() rep.RepType {
	return repTypeFor(s.Role, s.Rep)
}

type Guard struct {
	profiles ProfileSource
	cache    ProfileCache
	logger   *zap.Logger
}

func NewGuard(profiles ProfileSource, cache ProfileCache, logger *zap.Logger) *Guard {
	return &Guard{
		profiles: profiles,
		cache:    cache,
		logger:   logger,
	}
}

// Resolve returns the read scope. Unknown roles and rep-scoped callers
// without a rep profile are refused with 403.
func (g *Guard) Resolve(ctx context.Context, c Caller) (*Scope, error) {
	scope, err := g.resolve(ctx, c)
	if err != nil {
		return nil, err
	}
	if scope.RepScoped() && scope.Rep == nil {
		g.logger.Warn("rep profile missing on read",
			zap.Int64("user_id", c.UserID),
			zap.String("email", c.Email),
		)
		return nil, xerrors.Forbidden(MsgInsufficientPermissions)
	}
	return scope, nil
}

// ResolveForCreate returns the write scope. A rep-scoped caller without a
// profile gets a 400 that tells them how to fix it.
func (g *Guard) ResolveForCreate(ctx context.Context, c Caller) (*Scope, error) {
	scope, err := g.resolve(ctx, c)
	if err != nil {
		return nil, err
	}
	if !scope.Capability.CanCreate {
		return nil, xerrors.Forbidden(MsgInsufficientPermissions)
	}
	if scope.RepScoped() && scope.Rep == nil {
		return nil, &xerrors.ValidationError{
			Message: MsgProfileMissing,
			Errors:  []string{"Sales rep profile missing for current user."},
		}
	}
	return scope, nil
}

func (g *Guard) resolve(ctx context.Context, c Caller) (*Scope, error) {
	role, ok := PrimaryRole(c.Roles)
	if !ok {
		return nil, xerrors.Forbidden(MsgInsufficientPermissions)
	}

	scope := &Scope{Role: role, Capability: PolicyFor(role)}
	if !scope.RepScoped() {
		return scope, nil
	}

	profile, err := g.lookupProfile(ctx, c.Email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return scope, nil
		}
		return nil, err
	}
	scope.Rep = profile
	return scope, nil
}

// AuthorizeCreate checks territory assignment and the rep's account type.
// Managers pass unconditionally.
func (g *Guard) AuthorizeCreate(ctx context.Context, s *Scope, c Caller, territoryID *int64, account *visit.AccountType) error {
	if !s.RepScoped() {
		return nil
	}

	if err := g.authorizeTerritory(ctx, c, territoryID); err != nil {
		return err
	}
	return authorizeAccountType(s, account)
}

// AuthorizeChange applies the write rules to the fields an update touches.
func (g *Guard) AuthorizeChange(ctx context.Context, s *Scope, c Caller, territoryID *int64, account *visit.AccountType) error {
	if !s.RepScoped() {
		return nil
	}
	if territoryID != nil {
		if err := g.authorizeTerritory(ctx, c, territoryID); err != nil {
			return err
		}
	}
	return authorizeAccountType(s, account)
}

// AuthorizeRecord refuses access to another rep's visit.
func (g *Guard) AuthorizeRecord(s *Scope, v *visit.Visit) error {
	if !s.RepScoped() {
		return nil
	}
	if s.Rep == nil || v.RepID != s.Rep.ID {
		return xerrors.Forbidden(MsgInsufficientPermissions)
	}
	return nil
}

func (g *Guard) authorizeTerritory(ctx context.Context, c Caller, territoryID *int64) error {
	notAssigned := xerrors.Forbidden(MsgTerritoryNotAssigned, "Territory is not assigned to this user.")
	if territoryID == nil {
		return notAssigned
	}

	assigned, cached, err := g.assignedTerritories(ctx, c.Email, false)
	if err != nil {
		return err
	}
	if !slices.Contains(assigned, *territoryID) && cached {
		// the assignment may be newer than the cache entry
		assigned, _, err = g.assignedTerritories(ctx, c.Email, true)
		if err != nil {
			return err
		}
	}
	if !slices.Contains(assigned, *territoryID) {
		return notAssigned
	}
	return nil
}

func authorizeAccountType(s *Scope, account *visit.AccountType) error {
	if account == nil {
		return nil
	}
	allowed := AllowedAccountType(s.RepType())
	if *account == allowed {
		return nil
	}
	if allowed == visit.AccountPharmacy {
		return xerrors.Forbidden(MsgSalesRepPharmacyOnly)
	}
	return xerrors.Forbidden(MsgMedicalRepHcpOnly)
}

func (g *Guard) lookupProfile(ctx context.Context, email string) (*rep.Profile, error) {
	if email == "" {
		return nil, xerrors.ErrNotFound
	}
	if g.cache != nil {
		if p, ok := g.cache.GetProfile(ctx, email); ok {
			return p, nil
		}
	}

	p, err := g.profiles.FindRepByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve rep profile: %w", err)
	}

	if g.cache != nil {
		g.cache.SetProfile(ctx, p)
	}
	return p, nil
}

// assignedTerritories reports whether the ids came from the cache.
func (g *Guard) assignedTerritories(ctx context.Context, email string, bypassCache bool) ([]int64, bool, error) {
	if g.cache != nil && !bypassCache {
		if ids, ok := g.cache.GetTerritories(ctx, email); ok {
			return ids, true, nil
		}
	}

	ids, err := g.profiles.ListAssignedTerritoryIDs(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load territory assignments: %w", err)
	}

	if g.cache != nil {
		g.cache.SetTerritories(ctx, email, ids)
	}
	return ids, false, nil
}
