package auth

import (
	"github.com/frahmantamala/lead-management/internal"
)

// LeadVisibilityPolicy is the row-level rule for leads. ADMIN and MANAGER act
// on every lead, SALES only on leads it owns. Callers run it on every read and
// every mutation.
type LeadVisibilityPolicy struct{}

func (LeadVisibilityPolicy) CanViewAll(p *Principal) bool {
	return p != nil && p.Role.IsPrivileged()
}

func (pol LeadVisibilityPolicy) CanAccessLead(p *Principal, ownerID int64) error {
	if p == nil {
		return internal.ErrMissingToken
	}
	if pol.CanViewAll(p) || p.ID == ownerID {
		return nil
	}
	return internal.ErrLeadAccessDenied
}

// CanReassign guards owner changes, independent of who owns the lead now.
func (pol LeadVisibilityPolicy) CanReassign(p *Principal) error {
	if pol.CanViewAll(p) {
		return nil
	}
	return internal.ErrReassignDenied
}

func (pol LeadVisibilityPolicy) CanDelete(p *Principal) error {
	if pol.CanViewAll(p) {
		return nil
	}
	if p == nil {
		return internal.ErrMissingToken
	}
	return ForbiddenRole(p.Role, []Role{RoleAdmin, RoleManager})
}

// OwnerScope returns the owner filter for list queries, 0 meaning unrestricted.
func (pol LeadVisibilityPolicy) OwnerScope(p *Principal) int64 {
	if pol.CanViewAll(p) {
		return 0
	}
	return p.ID
}
