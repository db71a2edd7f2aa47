package httpinterface

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-daemon/internal/core/application"
	"github.com/veil-network/veil-daemon/internal/core/domain"
)

type errorReply struct {
	Error     string `json:"error"`
	Shortfall uint64 `json:"shortfall,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("error on encoding http response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	var insufficientErr *domain.InsufficientFundsError
	switch {
	case errors.As(err, &insufficientErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorReply{
			Error:     insufficientErr.Error(),
			Shortfall: insufficientErr.Shortfall(),
		})
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidRecipient),
		errors.Is(err, domain.ErrAmountBelowReserve),
		errors.Is(err, application.ErrUnknownNamespace):
		writeJSON(w, http.StatusBadRequest, errorReply{Error: err.Error()})
	case errors.Is(err, application.ErrConfirmationTimeout),
		errors.Is(err, application.ErrIndexerLagged):
		writeJSON(w, http.StatusGatewayTimeout, errorReply{Error: err.Error()})
	case errors.Is(err, domain.ErrInsufficientGas):
		writeJSON(w, http.StatusUnprocessableEntity, errorReply{Error: err.Error()})
	default:
		log.WithError(err).Error("internal error")
		writeJSON(w, http.StatusInternalServerError, errorReply{
			Error: application.ErrServiceUnavailable.Error(),
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "malformed request body"})
		return false
	}
	return true
}

func (s *Service) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"wallet": s.walletSvc.Wallet(),
	})
}

type balanceReply struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Public  uint64 `json:"public"`
	Private uint64 `json:"private"`
	Total   uint64 `json:"total"`
}

func (s *Service) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		address = s.walletSvc.Wallet()
	}
	mint := r.URL.Query().Get("mint")
	if mint == "" {
		mint = domain.NativeMint
	}

	balance, err := s.balanceSvc.GetBalance(r.Context(), address, mint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceReply{
		Address: address,
		Mint:    mint,
		Public:  balance.Public,
		Private: balance.Private,
		Total:   balance.Total(),
	})
}

type refreshRequest struct {
	Keys []struct {
		Address string `json:"address"`
		Mint    string `json:"mint"`
	} `json:"keys"`
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	keys := make([]application.BalanceKey, 0, len(req.Keys))
	for _, key := range req.Keys {
		mint := key.Mint
		if mint == "" {
			mint = domain.NativeMint
		}
		keys = append(keys, application.BalanceKey{
			Address: key.Address, Mint: mint,
		})
	}
	s.balanceSvc.TriggerRefresh(keys)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

type addressReply struct {
	Address   string `json:"address"`
	Index     uint32 `json:"index"`
	Namespace string `json:"namespace"`
}

func (s *Service) handleNewAddress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Namespace string `json:"namespace"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	derived, err := s.walletSvc.NewAddress(
		r.Context(), domain.AddressNamespace(req.Namespace),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addressReply{
		Address:   derived.Address,
		Index:     derived.Index,
		Namespace: string(derived.Namespace),
	})
}

func (s *Service) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	ns := r.URL.Query().Get("namespace")
	if ns == "" {
		ns = string(domain.NamespaceStealth)
	}

	addresses, err := s.walletSvc.ListAddresses(
		r.Context(), domain.AddressNamespace(ns),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	replies := make([]addressReply, 0, len(addresses))
	for _, address := range addresses {
		replies = append(replies, addressReply{
			Address:   address.Address,
			Index:     address.Index,
			Namespace: string(address.Namespace),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"addresses": replies})
}

type operationReply struct {
	FlowID      string `json:"flowId"`
	TxSignature string `json:"txSignature,omitempty"`
	Amount      uint64 `json:"amount"`
	Fee         uint64 `json:"fee,omitempty"`
	Status      string `json:"status"`
}

func toOperationReply(result *application.OperationResult) operationReply {
	return operationReply{
		FlowID:      result.FlowID,
		TxSignature: result.TxSignature,
		Amount:      result.Amount,
		Fee:         result.Fee,
		Status:      result.Status,
	}
}

func (s *Service) handleShield(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.transferSvc.Shield(r.Context(), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationReply(result))
}

func (s *Service) handleUnshield(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount    uint64 `json:"amount"`
		Recipient string `json:"recipient"`
		Gasless   bool   `json:"gasless"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.transferSvc.Unshield(
		r.Context(), req.Amount, req.Recipient, req.Gasless,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationReply(result))
}

func (s *Service) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount    uint64 `json:"amount"`
		Recipient string `json:"recipient"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.transferSvc.SendShielded(
		r.Context(), req.Amount, req.Recipient,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationReply(result))
}

func (s *Service) handleSendToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mint      string `json:"mint"`
		Decimals  uint32 `json:"decimals"`
		Amount    uint64 `json:"amount"`
		Recipient string `json:"recipient"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.transferSvc.SendTokenShielded(
		r.Context(), req.Mint, req.Decimals, req.Amount, req.Recipient,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationReply(result))
}

func (s *Service) handleToken(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]
	token, err := s.swapSvc.Token(r.Context(), mint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

type quoteRequest struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      uint64 `json:"amount"`
	SlippageBps int    `json:"slippageBps"`
}

func (s *Service) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	quote, err := s.swapSvc.Quote(
		r.Context(), req.InputMint, req.OutputMint, req.Amount, req.SlippageBps,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"inputMint":      quote.InputMint,
		"outputMint":     quote.OutputMint,
		"inAmount":       quote.InAmount,
		"outAmount":      quote.OutAmount,
		"priceImpactPct": quote.PriceImpactPct,
	})
}

func (s *Service) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.swapSvc.Swap(
		r.Context(), req.InputMint, req.OutputMint, req.Amount, req.SlippageBps,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"flowId":         result.FlowID,
		"swapSignature":  result.SwapSignature,
		"sweepSignature": result.SweepSignature,
		"inAmount":       result.InAmount,
		"outAmount":      result.OutAmount,
		"fee":            result.Fee,
	})
}

func (s *Service) handleOperations(w http.ResponseWriter, r *http.Request) {
	page := domain.Page{}
	if raw := r.URL.Query().Get("page"); raw != "" {
		number, err := strconv.Atoi(raw)
		if err != nil || number < 1 {
			writeJSON(w, http.StatusBadRequest, errorReply{Error: "invalid page"})
			return
		}
		page.Number = number
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			writeJSON(w, http.StatusBadRequest, errorReply{Error: "invalid size"})
			return
		}
		page.Size = size
	}

	operations, err := s.transferSvc.Operations(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"operations": operations,
	})
}
