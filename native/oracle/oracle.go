package oracle

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/events"
	"arclend/core/types"
	nativecommon "arclend/native/common"
)

var (
	// ErrInvalidPrice rejects zero prices at write time; zero is never stored.
	ErrInvalidPrice = errors.New("oracle: price must be positive")
	// ErrLengthMismatch rejects batch updates with uneven array lengths.
	ErrLengthMismatch = errors.New("oracle: assets and prices length mismatch")
	// ErrStalePrice marks an observation older than MaxAge.
	ErrStalePrice = errors.New("oracle: price too old")
	// ErrPriceNotFound marks an asset with no stored observation.
	ErrPriceNotFound = errors.New("oracle: no price recorded")
)

// MaxAge bounds how old an observation may be before solvency-critical reads
// reject it. An observation aged exactly MaxAge is still fresh.
const MaxAge = 3600 * time.Second

const moduleName = "oracle"

// oracleState is the persistence surface for price records.
type oracleState interface {
	PriceRecord(asset common.Address) *types.PriceRecord
	PutPriceRecord(asset common.Address, rec *types.PriceRecord)
}

// Oracle stores the latest push-updated price per asset, eight fixed-point
// fractional digits, and enforces the freshness window on reads.
type Oracle struct {
	state   oracleState
	roles   nativecommon.RoleView
	pauses  nativecommon.PauseView
	emitter events.Emitter
}

// New constructs an oracle over the provided state and role authority.
func New(state oracleState, roles nativecommon.RoleView) *Oracle {
	return &Oracle{state: state, roles: roles, emitter: events.NoopEmitter{}}
}

// SetEmitter wires the event sink for price update notifications.
func (o *Oracle) SetEmitter(emitter events.Emitter) {
	if o == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	o.emitter = emitter
}

// SetPauses installs the governance pause switches.
func (o *Oracle) SetPauses(p nativecommon.PauseView) {
	if o == nil {
		return
	}
	o.pauses = p
}

// UpdatePrice stores {price, now} for the asset, overwriting any prior
// record. Zero prices fail with ErrInvalidPrice before any state change.
func (o *Oracle) UpdatePrice(caller, asset common.Address, price *big.Int, now time.Time) error {
	if err := nativecommon.Guard(o.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.RequireAdmin(o.roles, caller); err != nil {
		return err
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	o.state.PutPriceRecord(asset, &types.PriceRecord{Price: price, ObservedAt: now})
	o.emitter.Emit(events.PriceUpdated{Asset: asset, Price: new(big.Int).Set(price), ObservedAt: now.Unix()})
	return nil
}

// UpdatePrices applies UpdatePrice per pair, all-or-nothing: every price is
// validated before the first write so a bad entry leaves no partial batch.
func (o *Oracle) UpdatePrices(caller common.Address, assets []common.Address, prices []*big.Int, now time.Time) error {
	if err := nativecommon.Guard(o.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.RequireAdmin(o.roles, caller); err != nil {
		return err
	}
	if len(assets) != len(prices) {
		return ErrLengthMismatch
	}
	for _, price := range prices {
		if price == nil || price.Sign() <= 0 {
			return ErrInvalidPrice
		}
	}
	for i, asset := range assets {
		o.state.PutPriceRecord(asset, &types.PriceRecord{Price: prices[i], ObservedAt: now})
		o.emitter.Emit(events.PriceUpdated{Asset: asset, Price: new(big.Int).Set(prices[i]), ObservedAt: now.Unix()})
	}
	return nil
}

// GetPrice returns the stored price, failing with ErrStalePrice once the
// observation is older than MaxAge. Solvency-critical valuation must use this
// accessor, never GetPriceUnsafe.
func (o *Oracle) GetPrice(asset common.Address, now time.Time) (*big.Int, error) {
	rec := o.state.PriceRecord(asset)
	if rec == nil || rec.Price == nil {
		return nil, ErrPriceNotFound
	}
	if now.Sub(rec.ObservedAt) > MaxAge {
		return nil, ErrStalePrice
	}
	return new(big.Int).Set(rec.Price), nil
}

// GetPriceUnsafe returns the stored price and its age without the staleness
// check. Intended for diagnostics and liquidation triage where the caller
// applies its own freshness policy.
func (o *Oracle) GetPriceUnsafe(asset common.Address, now time.Time) (*big.Int, time.Duration, error) {
	rec := o.state.PriceRecord(asset)
	if rec == nil || rec.Price == nil {
		return nil, 0, ErrPriceNotFound
	}
	return new(big.Int).Set(rec.Price), now.Sub(rec.ObservedAt), nil
}
