package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"arclend/native/bank"
	"arclend/native/collateral"
	nativecommon "arclend/native/common"
	"arclend/native/lending"
	"arclend/native/oracle"
	"arclend/native/registry"
)

var errBadRequest = errors.New("rpc: malformed request")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the protocol's error taxonomy onto HTTP status codes:
// validation to 400, authorization to 403, unknown entities to 404, state
// conflicts (insufficient funds, staleness, pauses, failed flash loans) to
// 409.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, lending.ErrInvalidAmount),
		errors.Is(err, collateral.ErrInvalidAmount),
		errors.Is(err, collateral.ErrInvalidRatio),
		errors.Is(err, oracle.ErrInvalidPrice),
		errors.Is(err, oracle.ErrLengthMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, nativecommon.ErrNotAdmin),
		errors.Is(err, nativecommon.ErrNotLiquidator),
		errors.Is(err, collateral.ErrNotBorrower),
		errors.Is(err, lending.ErrNotBorrower):
		status = http.StatusForbidden
	case errors.Is(err, lending.ErrPositionNotFound),
		errors.Is(err, collateral.ErrPositionNotFound),
		errors.Is(err, oracle.ErrPriceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lending.ErrUnsupportedAsset),
		errors.Is(err, collateral.ErrUnsupportedAsset),
		errors.Is(err, registry.ErrUnsupportedAsset),
		errors.Is(err, lending.ErrInsufficientBalance),
		errors.Is(err, bank.ErrInsufficientBalance),
		errors.Is(err, lending.ErrInsufficientLiquidity),
		errors.Is(err, collateral.ErrInsufficientCollateral),
		errors.Is(err, collateral.ErrPositionNotActive),
		errors.Is(err, collateral.ErrNotLiquidatable),
		errors.Is(err, lending.ErrLoanNotActive),
		errors.Is(err, oracle.ErrStalePrice),
		errors.Is(err, lending.ErrFlashLoanNotRepaid),
		errors.Is(err, nativecommon.ErrModulePaused):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decode(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	trimmed := strings.TrimSpace(s)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", errBadRequest, s)
	}
	return common.HexToAddress(trimmed), nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid amount %q", errBadRequest, s)
	}
	return amount, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
