package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-daemon/internal/core/domain"
	"github.com/veil-network/veil-daemon/internal/core/ports"
	"github.com/veil-network/veil-daemon/pkg/aggregator"
	"github.com/veil-network/veil-daemon/pkg/keyderive"
	"github.com/veil-network/veil-daemon/pkg/ledger"
	"github.com/veil-network/veil-daemon/pkg/relay"
	"github.com/veil-network/veil-daemon/pkg/txbuilder"
)

const swapOutputPollDeadline = 60 * time.Second

// SwapResult is returned once a private swap flow completes. The sweep
// signature refers to the transaction moving the swapped funds back into the
// wallet's shielded pool.
type SwapResult struct {
	FlowID         string
	SwapSignature  string
	SweepSignature string
	InAmount       uint64
	OutAmount      uint64
	Fee            uint64
}

// SwapService runs private swaps through a single-use ephemeral trading
// wallet so the aggregator never observes the user's wallet.
type SwapService interface {
	Token(ctx context.Context, mint string) (*aggregator.Token, error)
	Quote(
		ctx context.Context, inputMint, outputMint string,
		amount uint64, slippageBps int,
	) (*aggregator.Quote, error)
	Swap(
		ctx context.Context, inputMint, outputMint string,
		amount uint64, slippageBps int,
	) (*SwapResult, error)
}

type swapService struct {
	transfers     *transferService
	aggregatorSvc aggregator.Service
	ledgerSvc     ledger.Service
	relaySvc      relay.Service
	signer        ports.Signer
	balanceSvc    BalanceService
	operationRepo domain.OperationRepository
	analytics     *AnalyticsService
}

// NewSwapService wires the private swap flow on top of the transfer
// machinery.
func NewSwapService(
	ledgerSvc ledger.Service,
	relaySvc relay.Service,
	aggregatorSvc aggregator.Service,
	signer ports.Signer,
	balanceSvc BalanceService,
	operationRepo domain.OperationRepository,
	analytics *AnalyticsService,
	confirmTimeout time.Duration,
) SwapService {
	transfers := NewTransferService(
		ledgerSvc, relaySvc, signer, balanceSvc,
		operationRepo, analytics, confirmTimeout,
	).(*transferService)
	return &swapService{
		transfers:     transfers,
		aggregatorSvc: aggregatorSvc,
		ledgerSvc:     ledgerSvc,
		relaySvc:      relaySvc,
		signer:        signer,
		balanceSvc:    balanceSvc,
		operationRepo: operationRepo,
		analytics:     analytics,
	}
}

func (s *swapService) Token(
	ctx context.Context, mint string,
) (*aggregator.Token, error) {
	return s.aggregatorSvc.GetToken(ctx, mint)
}

func (s *swapService) Quote(
	ctx context.Context, inputMint, outputMint string,
	amount uint64, slippageBps int,
) (*aggregator.Quote, error) {
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	return s.aggregatorSvc.GetQuote(ctx, aggregator.QuoteRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		SlippageBps: slippageBps,
	})
}

// Swap executes a private swap: the input amount is unshielded to a fresh
// ephemeral wallet, the aggregator route is executed gasless from there, and
// the output is shielded back to the user's wallet. The ephemeral key is
// wiped before returning.
func (s *swapService) Swap(
	ctx context.Context, inputMint, outputMint string,
	amount uint64, slippageBps int,
) (result *SwapResult, err error) {
	defer func() { countOperation(string(domain.OperationSwap), err) }()

	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}

	inputToken, err := s.aggregatorSvc.GetToken(ctx, inputMint)
	if err != nil {
		return nil, fmt.Errorf("error on resolving input token: %w", err)
	}

	quote, err := s.Quote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return nil, err
	}

	net, fee := domain.GaslessFeePolicy.LessFee(amount, inputToken.Decimals)

	flow := domain.NewFlow()
	defer func() {
		if err != nil && !flow.IsTerminal() {
			flow.Fail(err.Error())
			s.recordSwap(ctx, flow, inputMint, net, fee, "")
		}
	}()

	if err = flow.TransitionTo(domain.FlowCheckingBalance); err != nil {
		return nil, err
	}

	wallet := s.signer.PublicKey()
	balance, err := s.balanceSvc.GetBalance(ctx, wallet, inputMint)
	if err != nil {
		return nil, fmt.Errorf("error on checking balances: %w", err)
	}
	if balance.Private < amount {
		return nil, &domain.InsufficientFundsError{
			Required:  amount,
			Available: balance.Total(),
		}
	}

	ephemeral, err := keyderive.NewEphemeral()
	if err != nil {
		return nil, fmt.Errorf("error on generating trading wallet: %w", err)
	}
	defer ephemeral.Zero()

	log.Debugf("funding trading wallet %s", ephemeral.Address())

	if err = flow.TransitionTo(domain.FlowShielding); err != nil {
		return nil, err
	}
	if err = s.fund(ctx, inputMint, net, fee, ephemeral.Address()); err != nil {
		return nil, fmt.Errorf("error on funding trading wallet: %w", err)
	}

	if err = flow.TransitionTo(domain.FlowAwaitingConfirmation); err != nil {
		return nil, err
	}
	if err = s.waitForFunds(
		ctx, ephemeral.Address(), inputMint, net,
	); err != nil {
		return nil, err
	}

	if err = flow.TransitionTo(domain.FlowTransferring); err != nil {
		return nil, err
	}

	// re-quote for the net amount actually funded
	quote, err = s.Quote(ctx, inputMint, outputMint, net, slippageBps)
	if err != nil {
		return nil, err
	}

	swapSig, err := s.executeSwap(ctx, quote, ephemeral)
	if err != nil {
		return nil, err
	}

	outAmount, sweepSig, err := s.sweep(ctx, outputMint, ephemeral, wallet)
	if err != nil {
		return nil, err
	}

	if err = flow.TransitionTo(domain.FlowConfirmed); err != nil {
		return nil, err
	}

	s.balanceSvc.Cache().InvalidateAll()
	s.analytics.Track("swap", amount, inputToken.Symbol, wallet)
	s.recordSwap(ctx, flow, inputMint, net, fee, swapSig)

	return &SwapResult{
		FlowID:         flow.ID,
		SwapSignature:  swapSig,
		SweepSignature: sweepSig,
		InAmount:       net,
		OutAmount:      outAmount,
		Fee:            fee,
	}, nil
}

// fund moves the input amount out of the wallet's shielded pool onto the
// ephemeral transparent account. The relay pays the network fee so the
// ephemeral wallet needs no gas of its own.
func (s *swapService) fund(
	ctx context.Context, mint string, amount, fee uint64, to string,
) error {
	if mint == domain.NativeMint {
		_, err := s.transfers.executeUnshield(ctx, amount, fee, to, true)
		return err
	}

	wallet := s.signer.PublicKey()
	accounts, err := s.ledgerSvc.GetCompressedTokenAccountsByOwner(
		ctx, wallet, mint,
	)
	if err != nil {
		return fmt.Errorf("error on listing shielded token notes: %w", err)
	}
	selected, _, err := ledger.SelectMinTokenAccountsForTransfer(
		accounts, amount+fee,
	)
	if err != nil {
		return &domain.InsufficientFundsError{
			Required:  amount + fee,
			Available: ledger.SumTokenAmounts(accounts),
		}
	}

	hashes := make([]string, 0, len(selected))
	for _, account := range selected {
		hashes = append(hashes, account.Hash)
	}
	proof, err := s.ledgerSvc.GetValidityProof(ctx, hashes)
	if err != nil {
		return fmt.Errorf("error on retrieving validity proof: %w", err)
	}

	instructions := []txbuilder.Instruction{
		txbuilder.NewTokenUnshieldInstruction(
			wallet, to, mint, amount, []byte(proof.CompressedProof),
		),
	}
	if fee > 0 {
		instructions = append(
			instructions,
			txbuilder.NewTokenUnshieldInstruction(
				wallet, feeCollectorAddress, mint, fee,
				[]byte(proof.CompressedProof),
			),
		)
	}

	_, err = s.transfers.relaySubmitConfirm(
		ctx, instructions, s.relaySvc.GaslessUnshield,
	)
	return err
}

// waitForFunds polls the ledger until the funded amount shows up on the
// ephemeral transparent account.
func (s *swapService) waitForFunds(
	ctx context.Context, address, mint string, target uint64,
) error {
	err := pollUntil(
		ctx, indexerPollDeadline, indexerPollInterval,
		func(ctx context.Context) (bool, error) {
			balance, err := s.transparentBalance(ctx, address, mint)
			if err != nil {
				return false, nil
			}
			return balance >= target, nil
		},
	)
	if err == context.DeadlineExceeded {
		return ErrIndexerLagged
	}
	return err
}

func (s *swapService) transparentBalance(
	ctx context.Context, address, mint string,
) (uint64, error) {
	if mint == domain.NativeMint {
		return s.ledgerSvc.GetBalance(ctx, address)
	}
	return s.ledgerSvc.GetTokenBalance(ctx, address, mint)
}

func (s *swapService) executeSwap(
	ctx context.Context, quote *aggregator.Quote, ephemeral *keyderive.Keypair,
) (string, error) {
	instructions, err := s.aggregatorSvc.GetSwapInstructions(
		ctx, quote, ephemeral.Address(),
	)
	if err != nil {
		return "", err
	}

	blockhash, err := s.ledgerSvc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("error on retrieving blockhash: %w", err)
	}

	tx, err := s.relaySvc.GaslessTrading(ctx, relay.Request{
		Instructions:  instructions,
		Blockhash:     blockhash.Blockhash,
		UserPublicKey: ephemeral.Address(),
	})
	if err != nil {
		return "", err
	}
	if err := tx.Sign(ephemeral); err != nil {
		return "", err
	}

	return s.transfers.submitConfirm(ctx, tx, blockhash.LastValidBlockHeight)
}

// sweep shields whatever output landed on the ephemeral account back to the
// user's wallet and returns the swept amount.
func (s *swapService) sweep(
	ctx context.Context, mint string, ephemeral *keyderive.Keypair,
	wallet string,
) (uint64, string, error) {
	var swept uint64
	err := pollUntil(
		ctx, swapOutputPollDeadline, indexerPollInterval,
		func(ctx context.Context) (bool, error) {
			balance, err := s.transparentBalance(ctx, ephemeral.Address(), mint)
			if err != nil {
				return false, nil
			}
			swept = balance
			return balance > 0, nil
		},
	)
	if err != nil {
		if err == context.DeadlineExceeded {
			err = ErrIndexerLagged
		}
		return 0, "", fmt.Errorf("error on awaiting swap output: %w", err)
	}

	var instruction txbuilder.Instruction
	if mint == domain.NativeMint {
		instruction = txbuilder.NewShieldToInstruction(
			ephemeral.Address(), wallet, swept,
		)
	} else {
		instruction = txbuilder.NewShieldTokenInstruction(
			ephemeral.Address(), wallet, mint, swept,
		)
	}

	blockhash, err := s.ledgerSvc.GetLatestBlockhash(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("error on retrieving blockhash: %w", err)
	}

	tx, err := s.relaySvc.GaslessSend(ctx, relay.Request{
		Instructions:  []txbuilder.Instruction{instruction},
		Blockhash:     blockhash.Blockhash,
		UserPublicKey: ephemeral.Address(),
	})
	if err != nil {
		return 0, "", err
	}
	if err := tx.Sign(ephemeral); err != nil {
		return 0, "", err
	}

	signature, err := s.transfers.submitConfirm(
		ctx, tx, blockhash.LastValidBlockHeight,
	)
	if err != nil {
		return 0, "", err
	}
	return swept, signature, nil
}

func (s *swapService) recordSwap(
	ctx context.Context,
	flow *domain.Flow,
	mint string,
	amount, fee uint64,
	signature string,
) {
	operation := domain.Operation{
		FlowID:      flow.ID,
		Kind:        domain.OperationSwap,
		Wallet:      s.signer.PublicKey(),
		Mint:        mint,
		Amount:      amount,
		Fee:         fee,
		TxSignature: signature,
		Status:      flow.Status.String(),
		Reason:      flow.Reason,
		Timestamp:   time.Now().Unix(),
	}
	if err := s.operationRepo.AddOperation(ctx, operation); err != nil {
		log.WithError(err).Warn("error on recording operation")
	}
}
