package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-daemon/internal/core/domain"
	"github.com/veil-network/veil-daemon/internal/core/ports"
	"github.com/veil-network/veil-daemon/pkg/ledger"
	"github.com/veil-network/veil-daemon/pkg/relay"
	"github.com/veil-network/veil-daemon/pkg/txbuilder"
)

// feeCollectorAddress receives the service fee of shield and unshield
// operations.
const feeCollectorAddress = "VeiLFeeco11111111111111111111111111111111111"

const (
	confirmPollInterval = 2 * time.Second
	indexerPollDeadline = 30 * time.Second
	indexerPollInterval = time.Second
)

// OperationResult is returned by every terminal transfer flow.
type OperationResult struct {
	FlowID      string
	TxSignature string
	Amount      uint64
	Fee         uint64
	Status      string
}

// TransferService runs the shield, unshield and shielded transfer flows,
// reconciling pool balances ahead of the primary operation.
type TransferService interface {
	Shield(ctx context.Context, amount uint64) (*OperationResult, error)
	Unshield(
		ctx context.Context, amount uint64, recipient string, gasless bool,
	) (*OperationResult, error)
	SendShielded(
		ctx context.Context, amount uint64, recipient string,
	) (*OperationResult, error)
	SendTokenShielded(
		ctx context.Context,
		mint string,
		decimals uint32,
		amount uint64,
		recipient string,
	) (*OperationResult, error)
	Operations(
		ctx context.Context, page domain.Page,
	) ([]domain.Operation, error)
}

type transferService struct {
	ledgerSvc      ledger.Service
	relaySvc       relay.Service
	signer         ports.Signer
	balanceSvc     BalanceService
	operationRepo  domain.OperationRepository
	analytics      *AnalyticsService
	reconcilePol   domain.ReconcilePolicy
	confirmTimeout time.Duration
}

// NewTransferService wires the transfer flows.
func NewTransferService(
	ledgerSvc ledger.Service,
	relaySvc relay.Service,
	signer ports.Signer,
	balanceSvc BalanceService,
	operationRepo domain.OperationRepository,
	analytics *AnalyticsService,
	confirmTimeout time.Duration,
) TransferService {
	return &transferService{
		ledgerSvc:      ledgerSvc,
		relaySvc:       relaySvc,
		signer:         signer,
		balanceSvc:     balanceSvc,
		operationRepo:  operationRepo,
		analytics:      analytics,
		reconcilePol:   domain.DefaultReconcilePolicy(),
		confirmTimeout: confirmTimeout,
	}
}

func (t *transferService) Operations(
	ctx context.Context, page domain.Page,
) ([]domain.Operation, error) {
	return t.operationRepo.ListOperationsForWallet(
		ctx, t.signer.PublicKey(), page,
	)
}

// Shield moves the given amount from the transparent pool into the shielded
// one. The service fee is deducted from the shielded amount.
func (t *transferService) Shield(
	ctx context.Context, amount uint64,
) (result *OperationResult, err error) {
	defer func() { countOperation(string(domain.OperationShield), err) }()

	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}

	net, fee := domain.WalletFeePolicy.LessFee(amount, domain.NativeDecimals)
	signature, err := t.executeShield(ctx, net, fee)
	if err != nil {
		t.recordFailure(
			ctx, domain.OperationShield, domain.NativeMint, net, fee,
			signature, err,
		)
		return nil, err
	}

	t.balanceSvc.Cache().InvalidateAll()
	shieldedVolumeCounter.WithLabelValues("shield").Add(float64(net))
	t.analytics.Track("shield", amount, "SOL", t.signer.PublicKey())

	result = &OperationResult{
		TxSignature: signature,
		Amount:      net,
		Fee:         fee,
		Status:      domain.FlowConfirmed.String(),
	}
	t.record(ctx, domain.Operation{
		Kind:        domain.OperationShield,
		Mint:        domain.NativeMint,
		Amount:      net,
		Fee:         fee,
		TxSignature: signature,
		Status:      domain.FlowConfirmed.String(),
	})
	return result, nil
}

// Unshield moves the given amount out of the shielded pool towards a
// transparent recipient. With gasless enabled the relay pays the network fee
// and the higher gasless fee policy applies.
func (t *transferService) Unshield(
	ctx context.Context, amount uint64, recipient string, gasless bool,
) (result *OperationResult, err error) {
	defer func() { countOperation(string(domain.OperationUnshield), err) }()

	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if recipient == "" {
		return nil, domain.ErrInvalidRecipient
	}

	policy := domain.WalletFeePolicy
	if gasless {
		policy = domain.GaslessFeePolicy
	}
	net, fee := policy.LessFee(amount, domain.NativeDecimals)

	signature, err := t.executeUnshield(ctx, net, fee, recipient, gasless)
	if err != nil {
		t.recordFailure(
			ctx, domain.OperationUnshield, domain.NativeMint, net, fee,
			signature, err,
		)
		return nil, err
	}

	t.balanceSvc.Cache().InvalidateAll()
	shieldedVolumeCounter.WithLabelValues("unshield").Add(float64(net))
	t.analytics.Track("unshield", amount, "SOL", t.signer.PublicKey())

	result = &OperationResult{
		TxSignature: signature,
		Amount:      net,
		Fee:         fee,
		Status:      domain.FlowConfirmed.String(),
	}
	t.record(ctx, domain.Operation{
		Kind:        domain.OperationUnshield,
		Mint:        domain.NativeMint,
		Amount:      net,
		Fee:         fee,
		TxSignature: signature,
		Status:      domain.FlowConfirmed.String(),
	})
	return result, nil
}

// SendShielded transfers the given amount within the shielded pool, first
// reconciling the pools so the private balance covers the amount plus the
// operation fee.
func (t *transferService) SendShielded(
	ctx context.Context, amount uint64, recipient string,
) (result *OperationResult, err error) {
	defer func() { countOperation(string(domain.OperationTransfer), err) }()

	if recipient == "" {
		return nil, domain.ErrInvalidRecipient
	}

	flow := domain.NewFlow()
	defer func() {
		if err != nil && !flow.IsTerminal() {
			flow.Fail(err.Error())
			t.recordFlow(
				ctx, flow, domain.OperationTransfer, domain.NativeMint,
				amount, 0, "",
			)
		}
	}()

	if err = flow.TransitionTo(domain.FlowCheckingBalance); err != nil {
		return nil, err
	}

	wallet := t.signer.PublicKey()
	balance, err := t.balanceSvc.GetBalance(ctx, wallet, domain.NativeMint)
	if err != nil {
		return nil, fmt.Errorf("error on checking balances: %w", err)
	}

	plan, err := domain.Reconcile(
		amount, balance.Public, balance.Private, t.reconcilePol,
	)
	if err != nil {
		return nil, err
	}
	amount = plan.AdjustedAmount

	if plan.NeedsShield() {
		if err = flow.TransitionTo(domain.FlowShielding); err != nil {
			return nil, err
		}
		if _, err = t.executeShield(ctx, plan.ShieldAmount, 0); err != nil {
			return nil, fmt.Errorf("error on shielding shortfall: %w", err)
		}

		if err = flow.TransitionTo(domain.FlowAwaitingConfirmation); err != nil {
			return nil, err
		}
		if err = t.waitForPrivateBalance(ctx, wallet, amount); err != nil {
			return nil, err
		}
	}

	if err = flow.TransitionTo(domain.FlowTransferring); err != nil {
		return nil, err
	}

	signature, err := t.executeShieldedTransfer(ctx, amount, recipient)
	if err != nil {
		return nil, err
	}

	if err = flow.TransitionTo(domain.FlowConfirmed); err != nil {
		return nil, err
	}

	t.balanceSvc.Cache().InvalidateAll()
	t.analytics.Track("transfer", amount, "SOL", wallet)
	t.recordFlow(
		ctx, flow, domain.OperationTransfer, domain.NativeMint,
		amount, 0, signature,
	)

	return &OperationResult{
		FlowID:      flow.ID,
		TxSignature: signature,
		Amount:      amount,
		Status:      flow.Status.String(),
	}, nil
}

// SendTokenShielded is the token variant of SendShielded. Since network fees
// are paid in the native token, it first tops up the transparent native
// balance from the shielded native pool when needed, then reconciles the
// token pools so the private balance covers the amount before transferring.
func (t *transferService) SendTokenShielded(
	ctx context.Context,
	mint string,
	decimals uint32,
	amount uint64,
	recipient string,
) (result *OperationResult, err error) {
	defer func() { countOperation(string(domain.OperationSend), err) }()

	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if recipient == "" {
		return nil, domain.ErrInvalidRecipient
	}

	flow := domain.NewFlow()
	defer func() {
		if err != nil && !flow.IsTerminal() {
			flow.Fail(err.Error())
			t.recordFlow(ctx, flow, domain.OperationSend, mint, amount, 0, "")
		}
	}()

	if err = flow.TransitionTo(domain.FlowCheckingBalance); err != nil {
		return nil, err
	}

	wallet := t.signer.PublicKey()

	native, err := t.balanceSvc.GetBalance(ctx, wallet, domain.NativeMint)
	if err != nil {
		return nil, fmt.Errorf("error on checking gas balance: %w", err)
	}
	gasTopUp, err := domain.ReconcileGas(
		native.Public, native.Private, domain.DefaultMinGasLamports,
	)
	if err != nil {
		return nil, err
	}
	if gasTopUp > 0 {
		log.Debugf("topping up %d lamports of gas before token transfer", gasTopUp)
		if _, err = t.executeUnshield(
			ctx, gasTopUp, 0, wallet, false,
		); err != nil {
			return nil, fmt.Errorf("error on unshielding gas: %w", err)
		}
		t.balanceSvc.Cache().Invalidate(wallet)
	}

	balance, err := t.balanceSvc.GetBalance(ctx, wallet, mint)
	if err != nil {
		return nil, fmt.Errorf("error on checking token balances: %w", err)
	}

	plan, err := domain.Reconcile(
		amount, balance.Public, balance.Private, domain.TokenReconcilePolicy(),
	)
	if err != nil {
		return nil, err
	}
	amount = plan.AdjustedAmount
	net, fee := domain.WalletFeePolicy.LessFee(amount, decimals)

	if plan.NeedsShield() {
		if err = flow.TransitionTo(domain.FlowShielding); err != nil {
			return nil, err
		}
		if _, err = t.executeShieldToken(
			ctx, mint, plan.ShieldAmount,
		); err != nil {
			return nil, fmt.Errorf("error on shielding token shortfall: %w", err)
		}

		if err = flow.TransitionTo(domain.FlowAwaitingConfirmation); err != nil {
			return nil, err
		}
		if err = t.waitForPrivateTokenBalance(
			ctx, wallet, mint, amount,
		); err != nil {
			return nil, err
		}
	}

	if err = flow.TransitionTo(domain.FlowTransferring); err != nil {
		return nil, err
	}

	signature, err := t.executeTokenTransfer(ctx, mint, net, fee, recipient)
	if err != nil {
		return nil, err
	}

	if err = flow.TransitionTo(domain.FlowConfirmed); err != nil {
		return nil, err
	}

	t.balanceSvc.Cache().InvalidateAll()
	t.analytics.Track("send", amount, mint, wallet)
	t.recordFlow(ctx, flow, domain.OperationSend, mint, net, fee, signature)

	return &OperationResult{
		FlowID:      flow.ID,
		TxSignature: signature,
		Amount:      net,
		Fee:         fee,
		Status:      flow.Status.String(),
	}, nil
}

func (t *transferService) executeShield(
	ctx context.Context, amount, fee uint64,
) (string, error) {
	wallet := t.signer.PublicKey()
	instructions := []txbuilder.Instruction{
		txbuilder.NewShieldInstruction(wallet, amount),
	}
	if fee > 0 {
		instructions = append(
			instructions,
			txbuilder.NewTransferInstruction(wallet, feeCollectorAddress, fee),
		)
	}
	return t.signSubmitConfirm(ctx, instructions)
}

func (t *transferService) executeUnshield(
	ctx context.Context, amount, fee uint64, recipient string, gasless bool,
) (string, error) {
	wallet := t.signer.PublicKey()

	accounts, err := t.ledgerSvc.GetCompressedAccountsByOwner(ctx, wallet)
	if err != nil {
		return "", fmt.Errorf("error on listing shielded notes: %w", err)
	}
	selected, _, err := ledger.SelectMinAccountsForTransfer(
		accounts, amount+fee,
	)
	if err != nil {
		return "", &domain.InsufficientFundsError{
			Required:  amount + fee,
			Available: ledger.SumLamports(accounts),
		}
	}

	hashes := make([]string, 0, len(selected))
	for _, account := range selected {
		hashes = append(hashes, account.Hash)
	}
	proof, err := t.ledgerSvc.GetValidityProof(ctx, hashes)
	if err != nil {
		return "", fmt.Errorf("error on retrieving validity proof: %w", err)
	}

	instructions := []txbuilder.Instruction{
		txbuilder.NewUnshieldInstruction(
			wallet, recipient, amount, []byte(proof.CompressedProof),
		),
	}
	if fee > 0 {
		instructions = append(
			instructions,
			txbuilder.NewTransferInstruction(wallet, feeCollectorAddress, fee),
		)
	}

	if gasless {
		return t.relaySubmitConfirm(ctx, instructions, t.relaySvc.GaslessUnshield)
	}
	return t.signSubmitConfirm(ctx, instructions)
}

func (t *transferService) executeShieldedTransfer(
	ctx context.Context, amount uint64, recipient string,
) (string, error) {
	wallet := t.signer.PublicKey()

	accounts, err := t.ledgerSvc.GetCompressedAccountsByOwner(ctx, wallet)
	if err != nil {
		return "", fmt.Errorf("error on listing shielded notes: %w", err)
	}
	selected, _, err := ledger.SelectMinAccountsForTransfer(accounts, amount)
	if err != nil {
		return "", &domain.InsufficientFundsError{
			Required:  amount,
			Available: ledger.SumLamports(accounts),
		}
	}

	hashes := make([]string, 0, len(selected))
	for _, account := range selected {
		hashes = append(hashes, account.Hash)
	}
	proof, err := t.ledgerSvc.GetValidityProof(ctx, hashes)
	if err != nil {
		return "", fmt.Errorf("error on retrieving validity proof: %w", err)
	}

	instruction := txbuilder.NewShieldedTransferInstruction(
		wallet, recipient, amount, []byte(proof.CompressedProof),
	)
	return t.signSubmitConfirm(ctx, []txbuilder.Instruction{instruction})
}

func (t *transferService) executeTokenTransfer(
	ctx context.Context, mint string, amount, fee uint64, recipient string,
) (string, error) {
	wallet := t.signer.PublicKey()

	accounts, err := t.ledgerSvc.GetCompressedTokenAccountsByOwner(
		ctx, wallet, mint,
	)
	if err != nil {
		return "", fmt.Errorf("error on listing shielded token notes: %w", err)
	}
	selected, _, err := ledger.SelectMinTokenAccountsForTransfer(
		accounts, amount+fee,
	)
	if err != nil {
		return "", &domain.InsufficientFundsError{
			Required:  amount + fee,
			Available: ledger.SumTokenAmounts(accounts),
		}
	}

	hashes := make([]string, 0, len(selected))
	for _, account := range selected {
		hashes = append(hashes, account.Hash)
	}
	proof, err := t.ledgerSvc.GetValidityProof(ctx, hashes)
	if err != nil {
		return "", fmt.Errorf("error on retrieving validity proof: %w", err)
	}

	instructions := []txbuilder.Instruction{
		txbuilder.NewTokenTransferInstruction(
			wallet, recipient, mint, amount, []byte(proof.CompressedProof),
		),
	}
	if fee > 0 {
		instructions = append(
			instructions,
			txbuilder.NewTokenTransferInstruction(
				wallet, feeCollectorAddress, mint, fee,
				[]byte(proof.CompressedProof),
			),
		)
	}
	return t.signSubmitConfirm(ctx, instructions)
}

// executeShieldToken moves a token amount from the wallet's transparent token
// account into its own shielded pool.
func (t *transferService) executeShieldToken(
	ctx context.Context, mint string, amount uint64,
) (string, error) {
	wallet := t.signer.PublicKey()
	instruction := txbuilder.NewShieldTokenInstruction(
		wallet, wallet, mint, amount,
	)
	return t.signSubmitConfirm(ctx, []txbuilder.Instruction{instruction})
}

// signSubmitConfirm assembles a wallet-paid transaction, signs, submits and
// waits for its confirmation.
func (t *transferService) signSubmitConfirm(
	ctx context.Context, instructions []txbuilder.Instruction,
) (string, error) {
	wallet := t.signer.PublicKey()

	blockhash, err := t.ledgerSvc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("error on retrieving blockhash: %w", err)
	}

	message, err := txbuilder.NewMessage(
		wallet, blockhash.Blockhash, instructions...,
	)
	if err != nil {
		return "", err
	}
	tx := txbuilder.NewTransaction(message)

	payload, err := message.Serialize()
	if err != nil {
		return "", err
	}
	signature, err := t.signer.SignTransaction(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("error on signing transaction: %w", err)
	}
	tx.Signatures[wallet] = signature

	return t.submitConfirm(ctx, tx, blockhash.LastValidBlockHeight)
}

// relaySubmitConfirm routes the instructions through the gasless relay, which
// returns a partially-signed transaction with itself as fee payer, then
// co-signs and submits.
func (t *transferService) relaySubmitConfirm(
	ctx context.Context,
	instructions []txbuilder.Instruction,
	endpoint func(context.Context, relay.Request) (*txbuilder.Transaction, error),
) (string, error) {
	wallet := t.signer.PublicKey()

	blockhash, err := t.ledgerSvc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("error on retrieving blockhash: %w", err)
	}

	tx, err := endpoint(ctx, relay.Request{
		Instructions:  instructions,
		Blockhash:     blockhash.Blockhash,
		UserPublicKey: wallet,
	})
	if err != nil {
		return "", err
	}

	payload, err := tx.Message.Serialize()
	if err != nil {
		return "", err
	}
	signature, err := t.signer.SignTransaction(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("error on co-signing relay transaction: %w", err)
	}
	tx.Signatures[wallet] = signature

	return t.submitConfirm(ctx, tx, blockhash.LastValidBlockHeight)
}

func (t *transferService) submitConfirm(
	ctx context.Context, tx *txbuilder.Transaction, lastValidHeight uint64,
) (string, error) {
	encoded, err := tx.Serialize()
	if err != nil {
		return "", err
	}

	signature, err := t.ledgerSvc.SendTransaction(ctx, encoded)
	if err != nil {
		return "", fmt.Errorf("error on broadcasting transaction: %w", err)
	}

	if err := t.confirm(ctx, signature, lastValidHeight); err != nil {
		if err == context.DeadlineExceeded {
			err = ErrConfirmationTimeout
		}
		// the transaction may still have landed: surface the signature so the
		// caller can re-check balances
		log.WithError(err).Warnf("confirmation of %s not observed", signature)
		return signature, err
	}
	return signature, nil
}

// confirm waits for the signature to reach a terminal status, preferring the
// ledger push subscription when one is available and falling back to polling.
func (t *transferService) confirm(
	ctx context.Context, signature string, lastValidHeight uint64,
) error {
	if sub, ok := t.ledgerSvc.(ledger.Subscriber); ok {
		handled, err := t.confirmBySubscription(ctx, sub, signature)
		if handled {
			return err
		}
	}

	return pollUntil(
		ctx, t.confirmTimeout, confirmPollInterval,
		func(ctx context.Context) (bool, error) {
			confirmed, err := t.ledgerSvc.IsTransactionConfirmed(ctx, signature)
			if err != nil {
				return false, err
			}
			if confirmed {
				return true, nil
			}
			height, err := t.ledgerSvc.GetBlockHeight(ctx)
			if err != nil {
				// height check is best effort, keep polling the signature
				return false, nil
			}
			if height > lastValidHeight {
				return false, ErrConfirmationTimeout
			}
			return false, nil
		},
	)
}

// confirmBySubscription waits for the push notification of the signature.
// It reports handled false when the subscription cannot be established or the
// socket drops before a notification arrives, in which case the caller must
// fall back to polling.
func (t *transferService) confirmBySubscription(
	ctx context.Context, sub ledger.Subscriber, signature string,
) (bool, error) {
	subCtx, cancel := context.WithTimeout(ctx, t.confirmTimeout)
	defer cancel()

	notifications, err := sub.SubscribeSignature(subCtx, signature)
	if err != nil {
		log.WithError(err).Debug("signature subscription unavailable")
		return false, nil
	}

	select {
	case notification, open := <-notifications:
		if !open {
			return false, nil
		}
		if notification.Err != "" {
			return true, fmt.Errorf(
				"transaction failed on chain: %s", notification.Err,
			)
		}
		return true, nil
	case <-subCtx.Done():
		return true, subCtx.Err()
	}
}

// waitForPrivateBalance polls the indexer until the shielded balance of the
// address covers the target amount.
func (t *transferService) waitForPrivateBalance(
	ctx context.Context, address string, target uint64,
) error {
	err := pollUntil(
		ctx, indexerPollDeadline, indexerPollInterval,
		func(ctx context.Context) (bool, error) {
			accounts, err := t.ledgerSvc.GetCompressedAccountsByOwner(
				ctx, address,
			)
			if err != nil {
				return false, nil
			}
			return ledger.SumLamports(accounts) >= target, nil
		},
	)
	if err == context.DeadlineExceeded {
		return ErrIndexerLagged
	}
	return err
}

// waitForPrivateTokenBalance is the token variant of waitForPrivateBalance.
func (t *transferService) waitForPrivateTokenBalance(
	ctx context.Context, address, mint string, target uint64,
) error {
	err := pollUntil(
		ctx, indexerPollDeadline, indexerPollInterval,
		func(ctx context.Context) (bool, error) {
			accounts, err := t.ledgerSvc.GetCompressedTokenAccountsByOwner(
				ctx, address, mint,
			)
			if err != nil {
				return false, nil
			}
			return ledger.SumTokenAmounts(accounts) >= target, nil
		},
	)
	if err == context.DeadlineExceeded {
		return ErrIndexerLagged
	}
	return err
}

func (t *transferService) record(ctx context.Context, operation domain.Operation) {
	flow := domain.NewFlow()
	operation.FlowID = flow.ID
	operation.Wallet = t.signer.PublicKey()
	operation.Timestamp = time.Now().Unix()
	if err := t.operationRepo.AddOperation(ctx, operation); err != nil {
		log.WithError(err).Warn("error on recording operation")
	}
}

func (t *transferService) recordFlow(
	ctx context.Context,
	flow *domain.Flow,
	kind domain.OperationKind,
	mint string,
	amount, fee uint64,
	signature string,
) {
	operation := domain.Operation{
		FlowID:      flow.ID,
		Kind:        kind,
		Wallet:      t.signer.PublicKey(),
		Mint:        mint,
		Amount:      amount,
		Fee:         fee,
		TxSignature: signature,
		Status:      flow.Status.String(),
		Reason:      flow.Reason,
		Timestamp:   time.Now().Unix(),
	}
	if err := t.operationRepo.AddOperation(ctx, operation); err != nil {
		log.WithError(err).Warn("error on recording operation")
	}
}

// recordFailure records a failed single-step operation so the operations
// listing stays a complete audit trail.
func (t *transferService) recordFailure(
	ctx context.Context,
	kind domain.OperationKind,
	mint string,
	amount, fee uint64,
	signature string,
	cause error,
) {
	flow := domain.NewFlow()
	flow.Fail(cause.Error())
	t.recordFlow(ctx, flow, kind, mint, amount, fee, signature)
}
