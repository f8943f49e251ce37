package protocol

import (
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/events"
	"arclend/core/state"
	"arclend/core/types"
	"arclend/native/bank"
	"arclend/native/collateral"
	nativecommon "arclend/native/common"
	"arclend/native/lending"
	"arclend/native/oracle"
	"arclend/native/rates"
	"arclend/native/registry"
	"arclend/observability/metrics"
)

// Config wires the ledger's collaborators. Zero-value fields fall back to
// sensible defaults: system clock, discarded logs, no event sink.
type Config struct {
	Roles               nativecommon.RoleView
	Pauses              nativecommon.PauseView
	Clock               nativecommon.Clock
	Logger              *slog.Logger
	Sink                events.Emitter
	LiquidationBonusBps uint64
	ReserveFactorBps    uint64
}

// Ledger is the composition root: one mutual-exclusion domain over the whole
// protocol state. Every operation takes the mutex, reads the clock once, and
// commits or aborts as a unit; buffered events reach the sink only on commit.
type Ledger struct {
	mu sync.Mutex

	state    *state.State
	bank     *bank.Ledger
	registry *registry.Registry
	oracle   *oracle.Oracle
	model    *rates.Model
	reserve  *rates.Reserve
	manager  *collateral.Manager
	pool     *lending.Engine

	buffer *events.Buffer
	sink   events.Emitter
	audit  []events.Event

	roles   nativecommon.RoleView
	clock   nativecommon.Clock
	log     *slog.Logger
	metrics *metrics.LendingMetrics
}

// NewLedger assembles the protocol over a fresh state.
func NewLedger(cfg Config) *Ledger {
	if cfg.Clock == nil {
		cfg.Clock = nativecommon.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st := state.New()
	ledger := bank.NewLedger(st)
	reg := registry.New(st, cfg.Roles)
	priceOracle := oracle.New(st, cfg.Roles)
	model := rates.NewModel(st, cfg.Roles)
	reserve := rates.NewReserve(st)
	manager := collateral.NewManager(st, ledger, priceOracle, cfg.Roles)
	pool := lending.NewEngine(st, ledger, model, reserve, manager)

	st.SetRateParams(rates.DefaultRateParams)
	if cfg.LiquidationBonusBps > 0 {
		manager.SetLiquidationBonus(cfg.LiquidationBonusBps)
	}
	pool.SetReserveFactor(cfg.ReserveFactorBps)

	buf := events.NewBuffer()
	for _, mod := range []interface{ SetEmitter(events.Emitter) }{reg, priceOracle, model, manager, pool} {
		mod.SetEmitter(buf)
	}
	if cfg.Pauses != nil {
		for _, mod := range []interface{ SetPauses(nativecommon.PauseView) }{reg, priceOracle, model, manager, pool} {
			mod.SetPauses(cfg.Pauses)
		}
	}

	return &Ledger{
		state:    st,
		bank:     ledger,
		registry: reg,
		oracle:   priceOracle,
		model:    model,
		reserve:  reserve,
		manager:  manager,
		pool:     pool,
		buffer:   buf,
		sink:     cfg.Sink,
		roles:    cfg.Roles,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		metrics:  metrics.Lending(),
	}
}

// run executes one mutating operation under the ledger lock. The state
// snapshot and event checkpoint taken up front are rolled back together when
// fn fails, so an aborted operation leaves no trace.
func (l *Ledger) run(op string, fn func(now time.Time) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	rev := l.state.Snapshot()
	mark := l.buffer.Checkpoint()

	if err := fn(now); err != nil {
		l.state.RevertToSnapshot(rev)
		l.buffer.Revert(mark)
		l.metrics.RecordOperation(op, "error")
		l.log.Warn("operation aborted", "op", op, "error", err)
		return err
	}

	l.state.DiscardSnapshot(rev)
	flushed := l.buffer.FlushTo(l.sink)
	l.audit = append(l.audit, flushed...)
	l.metrics.RecordOperation(op, "ok")
	l.metrics.SetActivePositions(l.state.ActivePositions())
	l.log.Info("operation committed", "op", op, "events", len(flushed))
	return nil
}

// RegisterAsset adds the asset to the whitelist. Admin-only, idempotent.
func (l *Ledger) RegisterAsset(caller, asset common.Address) error {
	return l.run("register_asset", func(time.Time) error {
		return l.registry.RegisterAsset(caller, asset)
	})
}

// UpdatePrice stores a fresh oracle observation for the asset.
func (l *Ledger) UpdatePrice(caller, asset common.Address, price *big.Int) error {
	return l.run("update_price", func(now time.Time) error {
		return l.oracle.UpdatePrice(caller, asset, price, now)
	})
}

// UpdatePrices stores a batch of observations all-or-nothing.
func (l *Ledger) UpdatePrices(caller common.Address, assets []common.Address, prices []*big.Int) error {
	return l.run("update_prices", func(now time.Time) error {
		return l.oracle.UpdatePrices(caller, assets, prices, now)
	})
}

// UpdateRates replaces the interest curve parameters as a unit.
func (l *Ledger) UpdateRates(caller common.Address, base, multiplier, jump, kink uint64) error {
	return l.run("update_rates", func(time.Time) error {
		return l.model.UpdateRates(caller, base, multiplier, jump, kink)
	})
}

// ConfigureCollateral enables the asset as collateral at the given minimum
// ratio.
func (l *Ledger) ConfigureCollateral(caller, asset common.Address, minRatioBps uint64) error {
	return l.run("configure_collateral", func(time.Time) error {
		return l.manager.ConfigureCollateral(caller, asset, minRatioBps)
	})
}

// Mint credits freshly issued funds to an account. Admin-only; the daemon
// uses it to apply genesis balances.
func (l *Ledger) Mint(caller, account, asset common.Address, amount *big.Int) error {
	return l.run("mint", func(time.Time) error {
		if err := nativecommon.RequireAdmin(l.roles, caller); err != nil {
			return err
		}
		return l.bank.Mint(account, asset, amount)
	})
}

// Deposit supplies pool liquidity from the caller's balance.
func (l *Ledger) Deposit(caller, asset common.Address, amount *big.Int) error {
	return l.run("deposit", func(now time.Time) error {
		if err := l.pool.Deposit(caller, asset, amount, now); err != nil {
			return err
		}
		l.publishPoolGauges(asset)
		return nil
	})
}

// Withdraw returns part of the caller's pool deposit.
func (l *Ledger) Withdraw(caller, asset common.Address, amount *big.Int) error {
	return l.run("withdraw", func(now time.Time) error {
		if err := l.pool.Withdraw(caller, asset, amount, now); err != nil {
			return err
		}
		l.publishPoolGauges(asset)
		return nil
	})
}

// DepositCollateral escrows collateral under a new position and returns its
// id.
func (l *Ledger) DepositCollateral(caller, asset common.Address, amount *big.Int) (uint64, error) {
	var id uint64
	err := l.run("deposit_collateral", func(now time.Time) error {
		var err error
		id, err = l.manager.DepositCollateral(caller, asset, amount, now)
		return err
	})
	return id, err
}

// WithdrawCollateral releases escrowed funds back to the position owner.
func (l *Ledger) WithdrawCollateral(caller common.Address, id uint64, amount *big.Int) error {
	return l.run("withdraw_collateral", func(now time.Time) error {
		return l.manager.WithdrawCollateral(caller, id, amount, now)
	})
}

// Borrow opens a collateralized loan and pays the principal to the borrower.
func (l *Ledger) Borrow(borrower, asset common.Address, principal *big.Int, collateralAsset common.Address, collateralAmount *big.Int, duration uint64) (uint64, error) {
	var id uint64
	err := l.run("borrow", func(now time.Time) error {
		var err error
		id, err = l.pool.Borrow(borrower, asset, principal, collateralAsset, collateralAmount, duration, now)
		if err != nil {
			return err
		}
		l.publishPoolGauges(asset)
		return nil
	})
	return id, err
}

// Repay settles a loan in full and returns the amount collected.
func (l *Ledger) Repay(caller common.Address, id uint64, asset common.Address) (*big.Int, error) {
	var owed *big.Int
	err := l.run("repay", func(now time.Time) error {
		var err error
		owed, err = l.pool.Repay(caller, id, asset, now)
		if err != nil {
			return err
		}
		l.publishPoolGauges(asset)
		return nil
	})
	return owed, err
}

// Liquidate closes an under-collateralized position on behalf of a
// liquidator. Returns the computed entitlement and the collateral seized.
func (l *Ledger) Liquidate(caller common.Address, id uint64) (*big.Int, *big.Int, error) {
	var entitlement, seized *big.Int
	err := l.run("liquidate", func(now time.Time) error {
		var err error
		entitlement, seized, err = l.manager.LiquidatePosition(caller, id, now)
		if err != nil {
			return err
		}
		l.metrics.RecordLiquidation()
		return nil
	})
	return entitlement, seized, err
}

// FlashLoan lends funds to the caller for the duration of the borrower
// callback. The callback runs inside the ledger lock and receives the pool
// engine directly, so it can run further operations without re-entering.
func (l *Ledger) FlashLoan(caller, asset common.Address, amount *big.Int, borrower lending.FlashBorrower) (*big.Int, error) {
	var fee *big.Int
	err := l.run("flash_loan", func(now time.Time) error {
		var err error
		fee, err = l.pool.FlashLoan(caller, asset, amount, borrower, now)
		if err != nil {
			return err
		}
		volume, _ := new(big.Float).SetInt(amount).Float64()
		l.metrics.RecordFlashVolume(asset.Hex(), volume)
		return nil
	})
	return fee, err
}

// Accrue folds elapsed interest into the asset's index outside of any loan
// operation and returns the updated index.
func (l *Ledger) Accrue(asset common.Address) (*big.Int, error) {
	var index *big.Int
	err := l.run("accrue", func(now time.Time) error {
		stats := l.pool.Stats(asset)
		index = l.reserve.Accrue(asset, stats.BorrowRateBps, now)
		return nil
	})
	return index, err
}

func (l *Ledger) publishPoolGauges(asset common.Address) {
	stats := l.pool.Stats(asset)
	deposited, _ := new(big.Float).SetInt(stats.Deposited).Float64()
	borrowed, _ := new(big.Float).SetInt(stats.Borrowed).Float64()
	l.metrics.SetPoolGauges(asset.Hex(), deposited, borrowed, stats.BorrowRateBps)
}

// --- read operations; they share the mutex so reads always observe a
// committed state ---

// BalanceOf reports the account's free balance in the asset.
func (l *Ledger) BalanceOf(account, asset common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bank.BalanceOf(account, asset)
}

// DepositOf reports the account's withdrawable pool deposit.
func (l *Ledger) DepositOf(account, asset common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.DepositOf(account, asset)
}

// Position returns a copy of the stored position, or nil when unknown.
func (l *Ledger) Position(id uint64) *types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.manager.Position(id)
}

// GetPrice returns the asset's price, enforcing the staleness window.
func (l *Ledger) GetPrice(asset common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.oracle.GetPrice(asset, l.clock.Now())
}

// GetPriceUnsafe returns the stored price and its age without enforcing the
// staleness window.
func (l *Ledger) GetPriceUnsafe(asset common.Address) (*big.Int, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.oracle.GetPriceUnsafe(asset, l.clock.Now())
}

// IsRegistered reports whether the asset is on the whitelist.
func (l *Ledger) IsRegistered(asset common.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.IsRegistered(asset)
}

// RateParams returns the current interest curve parameters.
func (l *Ledger) RateParams() types.RateParams {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model.Params()
}

// CollateralConfig returns the asset's collateral settings.
func (l *Ledger) CollateralConfig(asset common.Address) types.CollateralConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.manager.Config(asset)
}

// Stats returns the asset's pool aggregates and curve rates.
func (l *Ledger) Stats(asset common.Address) lending.PoolStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.Stats(asset)
}

// Owed quotes the current settlement cost of a loan position.
func (l *Ledger) Owed(id uint64) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.Owed(id, l.clock.Now())
}

// Events returns the committed audit trail in emission order.
func (l *Ledger) Events() []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.Event, len(l.audit))
	copy(out, l.audit)
	return out
}
