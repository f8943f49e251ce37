package common

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotAdmin rejects configuration calls from non-admin callers.
	ErrNotAdmin = errors.New("caller is not an admin")
	// ErrNotLiquidator rejects liquidation calls from unprivileged callers.
	ErrNotLiquidator = errors.New("caller is not a liquidator")
)

// RoleView is the capability authority consulted by configuration and
// liquidation operations. It is passed explicitly so unit tests can install
// synthetic roles instead of relying on ambient authority.
type RoleView interface {
	IsAdmin(caller common.Address) bool
	IsLiquidator(caller common.Address) bool
}

// RequireAdmin returns ErrNotAdmin unless the caller holds the admin role. A
// nil view grants nothing.
func RequireAdmin(roles RoleView, caller common.Address) error {
	if roles == nil || !roles.IsAdmin(caller) {
		return ErrNotAdmin
	}
	return nil
}

// RequireLiquidator returns ErrNotLiquidator unless the caller holds the
// liquidator role. Admins do not implicitly qualify.
func RequireLiquidator(roles RoleView, caller common.Address) error {
	if roles == nil || !roles.IsLiquidator(caller) {
		return ErrNotLiquidator
	}
	return nil
}

// StaticRoles is a fixed role assignment used by genesis wiring and tests.
type StaticRoles struct {
	Admins      map[common.Address]bool
	Liquidators map[common.Address]bool
}

// NewStaticRoles constructs an empty role set.
func NewStaticRoles() *StaticRoles {
	return &StaticRoles{
		Admins:      make(map[common.Address]bool),
		Liquidators: make(map[common.Address]bool),
	}
}

// GrantAdmin marks the address as an admin.
func (r *StaticRoles) GrantAdmin(addr common.Address) {
	if r.Admins == nil {
		r.Admins = make(map[common.Address]bool)
	}
	r.Admins[addr] = true
}

// GrantLiquidator marks the address as a liquidator.
func (r *StaticRoles) GrantLiquidator(addr common.Address) {
	if r.Liquidators == nil {
		r.Liquidators = make(map[common.Address]bool)
	}
	r.Liquidators[addr] = true
}

// IsAdmin implements the RoleView interface.
func (r *StaticRoles) IsAdmin(caller common.Address) bool {
	return r != nil && r.Admins[caller]
}

// IsLiquidator implements the RoleView interface.
func (r *StaticRoles) IsLiquidator(caller common.Address) bool {
	return r != nil && r.Liquidators[caller]
}
