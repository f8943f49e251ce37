package registry

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/events"
	nativecommon "arclend/native/common"
)

// ErrUnsupportedAsset rejects operations on assets outside the whitelist.
var ErrUnsupportedAsset = errors.New("registry: asset not supported")

const moduleName = "registry"

// registryState is the persistence surface for the whitelist. Entries are
// append-only; there is no removal so historical positions stay referenceable.
type registryState interface {
	AssetRegistered(asset common.Address) bool
	SetAssetRegistered(asset common.Address)
}

// Registry maintains the whitelist of assets eligible for deposits and
// collateral use.
type Registry struct {
	state   registryState
	roles   nativecommon.RoleView
	pauses  nativecommon.PauseView
	emitter events.Emitter
}

// New constructs a registry over the provided state and role authority.
func New(state registryState, roles nativecommon.RoleView) *Registry {
	return &Registry{state: state, roles: roles, emitter: events.NoopEmitter{}}
}

// SetEmitter wires the event sink used for registration notifications.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if r == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	r.emitter = emitter
}

// SetPauses installs the governance pause switches.
func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// RegisterAsset whitelists the asset. The operation is admin-only and
// idempotent: re-registering an asset succeeds without emitting a second
// event.
func (r *Registry) RegisterAsset(caller, asset common.Address) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.RequireAdmin(r.roles, caller); err != nil {
		return err
	}
	if r.state.AssetRegistered(asset) {
		return nil
	}
	r.state.SetAssetRegistered(asset)
	r.emitter.Emit(events.TokenRegistered{Asset: asset})
	return nil
}

// IsRegistered reports whitelist membership.
func (r *Registry) IsRegistered(asset common.Address) bool {
	if r == nil || r.state == nil {
		return false
	}
	return r.state.AssetRegistered(asset)
}
