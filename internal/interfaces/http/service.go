// Package httpinterface exposes the daemon services over a JSON HTTP API.
// Browser wallets talk to this surface; it carries no authentication and must
// only bind loopback or sit behind a fronting proxy.
package httpinterface

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-daemon/internal/core/application"
)

// Service is the HTTP front of the daemon.
type Service struct {
	server *http.Server

	walletSvc   application.WalletService
	balanceSvc  application.BalanceService
	transferSvc application.TransferService
	swapSvc     application.SwapService
}

// NewService wires the handlers and returns a stoppable HTTP service
// listening on the given address.
func NewService(
	address string,
	walletSvc application.WalletService,
	balanceSvc application.BalanceService,
	transferSvc application.TransferService,
	swapSvc application.SwapService,
) (*Service, error) {
	if !isValidAddress(address) {
		return nil, fmt.Errorf("invalid listening address %s", address)
	}

	service := &Service{
		walletSvc:   walletSvc,
		balanceSvc:  balanceSvc,
		transferSvc: transferSvc,
		swapSvc:     swapSvc,
	}

	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/info", service.handleInfo).Methods(http.MethodGet)
	v1.HandleFunc("/balance", service.handleBalance).Methods(http.MethodGet)
	v1.HandleFunc("/balances/refresh", service.handleRefresh).
		Methods(http.MethodPost)
	v1.HandleFunc("/addresses", service.handleNewAddress).
		Methods(http.MethodPost)
	v1.HandleFunc("/addresses", service.handleListAddresses).
		Methods(http.MethodGet)
	v1.HandleFunc("/shield", service.handleShield).Methods(http.MethodPost)
	v1.HandleFunc("/unshield", service.handleUnshield).Methods(http.MethodPost)
	v1.HandleFunc("/send", service.handleSend).Methods(http.MethodPost)
	v1.HandleFunc("/send-token", service.handleSendToken).
		Methods(http.MethodPost)
	v1.HandleFunc("/tokens/{mint}", service.handleToken).Methods(http.MethodGet)
	v1.HandleFunc("/quote", service.handleQuote).Methods(http.MethodPost)
	v1.HandleFunc("/swap", service.handleSwap).Methods(http.MethodPost)
	v1.HandleFunc("/operations", service.handleOperations).
		Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	service.server = &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
	return service, nil
}

// Start blocks serving requests until Stop is called.
func (s *Service) Start() error {
	log.Infof("http interface listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("error on shutting down http interface")
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debugf(
			"%s %s %s", r.Method, r.URL.Path, time.Since(start),
		)
	})
}

func isValidAddress(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}
	if parts[0] != "" {
		if ip := net.ParseIP(parts[0]); ip == nil {
			return false
		}
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	if port <= 1024 {
		return false
	}
	return true
}
