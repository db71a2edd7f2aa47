package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-daemon/config"
	"github.com/veil-network/veil-daemon/internal/core/application"
	"github.com/veil-network/veil-daemon/internal/infrastructure/signer"
	dbbadger "github.com/veil-network/veil-daemon/internal/infrastructure/storage/db/badger"
	httpinterface "github.com/veil-network/veil-daemon/internal/interfaces/http"
	"github.com/veil-network/veil-daemon/pkg/aggregator"
	"github.com/veil-network/veil-daemon/pkg/ledger/compressed"
	"github.com/veil-network/veil-daemon/pkg/relay"
	"github.com/veil-network/veil-daemon/pkg/stats"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	datadir := config.GetDatadir()

	if config.GetBool(config.EnableProfilerKey) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stats.EnableMemoryStatistics(
			ctx, time.Minute, filepath.Join(datadir, config.ProfilerLocation),
		)
	}

	repoManager, err := dbbadger.NewRepoManager(
		filepath.Join(datadir, config.DbLocation), nil,
	)
	if err != nil {
		log.WithError(err).Panic("error while opening db")
	}
	defer repoManager.Close()

	walletSigner, err := signer.NewLocalSigner(
		config.GetString(config.SignerKeyPathKey),
	)
	if err != nil {
		log.WithError(err).Panic("error while loading signer key")
	}
	log.Infof("wallet %s", walletSigner.PublicKey())

	ledgerSvc, err := compressed.NewService(
		config.GetString(config.LedgerEndpointKey),
		config.GetString(config.LedgerWSEndpointKey),
		config.GetInt(config.LedgerRequestTimeoutKey),
	)
	if err != nil {
		log.WithError(err).Panic("error while connecting to ledger")
	}

	relaySvc := relay.NewService(
		config.GetString(config.RelayEndpointKey),
		config.GetInt(config.LedgerRequestTimeoutKey),
	)

	aggregatorSvc := aggregator.NewService(aggregator.Opts{
		APIURL:            config.GetString(config.AggregatorEndpointKey),
		RequestTimeout:    config.GetInt(config.LedgerRequestTimeoutKey),
		TokenTTL:          config.GetDuration(config.TokenCacheTTLKey),
		RequestsPerSecond: config.GetInt(config.AggregatorRateLimitKey),
	})

	analyticsSvc := application.NewAnalyticsService(
		config.GetString(config.AnalyticsEndpointKey),
	)

	cache := application.NewCacheService(
		config.GetDuration(config.BalanceCacheTTLKey), nil,
	)
	balanceSvc := application.NewBalanceService(ledgerSvc, cache)
	walletSvc := application.NewWalletService(
		walletSigner, repoManager.AddressRepository(),
	)
	transferSvc := application.NewTransferService(
		ledgerSvc, relaySvc, walletSigner, balanceSvc,
		repoManager.OperationRepository(), analyticsSvc,
		config.GetDuration(config.ConfirmTimeoutKey),
	)
	swapSvc := application.NewSwapService(
		ledgerSvc, relaySvc, aggregatorSvc, walletSigner, balanceSvc,
		repoManager.OperationRepository(), analyticsSvc,
		config.GetDuration(config.ConfirmTimeoutKey),
	)

	address := fmt.Sprintf(":%d", config.GetInt(config.ListeningPortKey))
	httpSvc, err := httpinterface.NewService(
		address, walletSvc, balanceSvc, transferSvc, swapSvc,
	)
	if err != nil {
		log.WithError(err).Panic("error while setting up http interface")
	}

	log.Debug("starting daemon")
	go func() {
		if err := httpSvc.Start(); err != nil {
			log.WithError(err).Panic("error while serving http interface")
		}
	}()
	defer httpSvc.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Debug("exiting")
}
