package rpc

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"arclend/core/types"
)

type assetRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.RegisterAsset(caller, asset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": asset.Hex()})
}

type priceRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Price  string `json:"price"`
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.UpdatePrice(caller, asset, price); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": asset.Hex(), "price": price.String()})
}

type pricesRequest struct {
	Caller string   `json:"caller"`
	Assets []string `json:"assets"`
	Prices []string `json:"prices"`
}

func (s *Server) handleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	var req pricesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	assets := make([]common.Address, 0, len(req.Assets))
	for _, raw := range req.Assets {
		asset, err := parseAddress(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		assets = append(assets, asset)
	}
	prices := make([]*big.Int, 0, len(req.Prices))
	for _, raw := range req.Prices {
		price, err := parseAmount(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		prices = append(prices, price)
	}
	if err := s.ledger.UpdatePrices(caller, assets, prices); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(assets)})
}

type ratesRequest struct {
	Caller            string `json:"caller"`
	BaseRateBps       uint64 `json:"baseRateBps"`
	MultiplierBps     uint64 `json:"multiplierBps"`
	JumpMultiplierBps uint64 `json:"jumpMultiplierBps"`
	KinkBps           uint64 `json:"kinkBps"`
}

func (s *Server) handleUpdateRates(w http.ResponseWriter, r *http.Request) {
	var req ratesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.UpdateRates(caller, req.BaseRateBps, req.MultiplierBps, req.JumpMultiplierBps, req.KinkBps); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

type collateralConfigRequest struct {
	Caller      string `json:"caller"`
	Asset       string `json:"asset"`
	MinRatioBps uint64 `json:"minRatioBps"`
}

func (s *Server) handleConfigureCollateral(w http.ResponseWriter, r *http.Request) {
	var req collateralConfigRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.ConfigureCollateral(caller, asset, req.MinRatioBps); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"minRatioBps": req.MinRatioBps})
}

type mintRequest struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.Mint(caller, account, asset, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"account": account.Hex(), "amount": amount.String()})
}

type fundsRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleFunds(w, r, s.ledger.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleFunds(w, r, s.ledger.Withdraw)
}

func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request, op func(common.Address, common.Address, *big.Int) error) {
	var req fundsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := op(caller, asset, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": asset.Hex(), "amount": amount.String()})
}

func (s *Server) handleDepositCollateral(w http.ResponseWriter, r *http.Request) {
	var req fundsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := s.ledger.DepositCollateral(caller, asset, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positionId": id})
}

type collateralWithdrawRequest struct {
	Caller     string `json:"caller"`
	PositionID uint64 `json:"positionId"`
	Amount     string `json:"amount"`
}

func (s *Server) handleWithdrawCollateral(w http.ResponseWriter, r *http.Request) {
	var req collateralWithdrawRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.WithdrawCollateral(caller, req.PositionID, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positionId": req.PositionID, "amount": amount.String()})
}

type borrowRequest struct {
	Borrower         string `json:"borrower"`
	Asset            string `json:"asset"`
	Principal        string `json:"principal"`
	CollateralAsset  string `json:"collateralAsset"`
	CollateralAmount string `json:"collateralAmount"`
	Duration         uint64 `json:"duration"`
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	borrower, err := parseAddress(req.Borrower)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	principal, err := parseAmount(req.Principal)
	if err != nil {
		writeError(w, err)
		return
	}
	collateralAsset, err := parseAddress(req.CollateralAsset)
	if err != nil {
		writeError(w, err)
		return
	}
	collateralAmount, err := parseAmount(req.CollateralAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := s.ledger.Borrow(borrower, asset, principal, collateralAsset, collateralAmount, req.Duration)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positionId": id})
}

type repayRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	id, err := parsePositionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req repayRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	owed, err := s.ledger.Repay(caller, id, asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positionId": id, "owed": owed.String()})
}

type liquidateRequest struct {
	Caller     string `json:"caller"`
	PositionID uint64 `json:"positionId"`
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	entitlement, seized, err := s.ledger.Liquidate(caller, req.PositionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positionId":  req.PositionID,
		"entitlement": entitlement.String(),
		"seized":      seized.String(),
	})
}

func (s *Server) handleAssetStatus(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":      asset.Hex(),
		"registered": s.ledger.IsRegistered(asset),
	})
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	price, err := s.ledger.GetPrice(asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": asset.Hex(), "price": price.String()})
}

func (s *Server) handleGetPriceUnsafe(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	price, age, err := s.ledger.GetPriceUnsafe(asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":      asset.Hex(),
		"price":      price.String(),
		"ageSeconds": int64(age.Seconds()),
	})
}

func (s *Server) handleRateParams(w http.ResponseWriter, _ *http.Request) {
	params := s.ledger.RateParams()
	writeJSON(w, http.StatusOK, map[string]uint64{
		"baseRateBps":       params.BaseRateBps,
		"multiplierBps":     params.MultiplierBps,
		"jumpMultiplierBps": params.JumpMultiplierBps,
		"kinkBps":           params.KinkBps,
	})
}

func (s *Server) handleCollateralConfig(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	cfg := s.ledger.CollateralConfig(asset)
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":       asset.Hex(),
		"supported":   cfg.Supported,
		"minRatioBps": cfg.MinRatioBps,
	})
}

func (s *Server) handlePoolStats(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	stats := s.ledger.Stats(asset)
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":          asset.Hex(),
		"deposited":      bigString(stats.Deposited),
		"borrowed":       bigString(stats.Borrowed),
		"available":      bigString(stats.Available),
		"utilizationBps": stats.UtilizationBps,
		"borrowRateBps":  stats.BorrowRateBps,
		"supplyRateBps":  stats.SupplyRateBps,
		"index":          bigString(stats.Index),
	})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	id, err := parsePositionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	pos := s.ledger.Position(id)
	if pos == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "position not found"})
		return
	}
	writeJSON(w, http.StatusOK, renderPosition(pos))
}

func (s *Server) handleOwed(w http.ResponseWriter, r *http.Request) {
	id, err := parsePositionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	owed, err := s.ledger.Owed(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positionId": id, "owed": owed.String()})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account": account.Hex(),
		"asset":   asset.Hex(),
		"balance": s.ledger.BalanceOf(account, asset).String(),
	})
}

func (s *Server) handleDepositOf(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account": account.Hex(),
		"asset":   asset.Hex(),
		"deposit": s.ledger.DepositOf(account, asset).String(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	audit := s.ledger.Events()
	out := make([]*types.Event, 0, len(audit))
	for _, evt := range audit {
		out = append(out, evt.Event())
	}
	writeJSON(w, http.StatusOK, out)
}

func parsePositionID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid position id %q", errBadRequest, raw)
	}
	return id, nil
}

func renderPosition(pos *types.Position) map[string]any {
	return map[string]any{
		"id":               pos.ID,
		"borrower":         pos.Borrower.Hex(),
		"debtAsset":        pos.DebtAsset.Hex(),
		"principal":        bigString(pos.Principal),
		"collateralAsset":  pos.CollateralAsset.Hex(),
		"collateralAmount": bigString(pos.CollateralAmount),
		"duration":         pos.Duration,
		"openedAt":         pos.OpenedAt.Unix(),
		"state":            pos.State.String(),
	}
}
