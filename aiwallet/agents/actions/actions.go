// Package actions holds the state-changing wallet operations the agent can trigger.
package actions

import (
	"aiwallet/aiwallet/services/wallet"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var (
	ErrWalletLocked       = errors.New("wallet is locked")
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
)

// Wallet is the part of the wallet wrapper the actions drive.
type Wallet interface {
	Address() string
	GetBalance(ctx context.Context) (string, error)
	GetDailyLimit(ctx context.Context) (string, error)
	GetDailySpent(ctx context.Context) (string, error)
	IsLocked(ctx context.Context) (bool, error)
	ExecuteTransaction(ctx context.Context, to, value string) (*types.Transaction, error)
	ToggleLock(ctx context.Context) (*types.Transaction, error)
	EmergencyWithdraw(ctx context.Context) (*types.Transaction, error)
	EstimateTransferFee(ctx context.Context, to, value string) (string, error)
}

type WalletActions struct{}

func NewWalletActions() *WalletActions { return &WalletActions{} }

type SendTransferParams struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type SendTransferResult struct {
	TxHash string             `json:"tx_hash"`
	To     string             `json:"to"`
	Amount string             `json:"amount"`
	Tx     *types.Transaction `json:"-"`
}

// SendTransfer refuses to submit anything while the wallet is locked or when
// the amount would push today's spending over the limit. The contract
// enforces both rules again on-chain.
func (a *WalletActions) SendTransfer(ctx context.Context, w Wallet, params SendTransferParams) (SendTransferResult, error) {
	defer logging.LogDuration(ctx, "action_send_transfer")()

	amountWei, err := wallet.ParseEther(params.Amount)
	if err != nil {
		return SendTransferResult{}, err
	}

	locked, err := w.IsLocked(ctx)
	if err != nil {
		return SendTransferResult{}, err
	}
	if locked {
		return SendTransferResult{}, ErrWalletLocked
	}

	remaining, err := remainingQuota(ctx, w)
	if err != nil {
		return SendTransferResult{}, err
	}
	if amountWei.Cmp(remaining) > 0 {
		return SendTransferResult{}, fmt.Errorf("%w: %s ETH remaining today", ErrDailyLimitExceeded, wallet.FormatEther(remaining))
	}

	tx, err := w.ExecuteTransaction(ctx, params.To, params.Amount)
	if err != nil {
		return SendTransferResult{}, err
	}
	logging.AppLogger.Info("transfer submitted",
		zap.String("wallet", w.Address()),
		zap.String("to", params.To),
		zap.String("amount", params.Amount),
		zap.String("tx", tx.Hash().Hex()))
	return SendTransferResult{TxHash: tx.Hash().Hex(), To: params.To, Amount: params.Amount, Tx: tx}, nil
}

func remainingQuota(ctx context.Context, w Wallet) (*big.Int, error) {
	limitStr, err := w.GetDailyLimit(ctx)
	if err != nil {
		return nil, err
	}
	spentStr, err := w.GetDailySpent(ctx)
	if err != nil {
		return nil, err
	}
	limit, err := wallet.ParseEther(limitStr)
	if err != nil {
		return nil, err
	}
	spent, err := wallet.ParseEther(spentStr)
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(limit, spent)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	return remaining, nil
}

type TxResult struct {
	TxHash string             `json:"tx_hash"`
	Tx     *types.Transaction `json:"-"`
}

func (a *WalletActions) ToggleLock(ctx context.Context, w Wallet) (TxResult, error) {
	defer logging.LogDuration(ctx, "action_toggle_lock")()
	tx, err := w.ToggleLock(ctx)
	if err != nil {
		return TxResult{}, err
	}
	return TxResult{TxHash: tx.Hash().Hex(), Tx: tx}, nil
}

// EmergencyWithdraw moves the whole contract balance back to the owner.
func (a *WalletActions) EmergencyWithdraw(ctx context.Context, w Wallet) (TxResult, error) {
	defer logging.LogDuration(ctx, "action_emergency_withdraw")()
	tx, err := w.EmergencyWithdraw(ctx)
	if err != nil {
		return TxResult{}, err
	}
	logging.AppLogger.Warn("emergency withdraw submitted",
		zap.String("wallet", w.Address()),
		zap.String("tx", tx.Hash().Hex()))
	return TxResult{TxHash: tx.Hash().Hex(), Tx: tx}, nil
}

type EstimateFeeResult struct {
	Fee string `json:"fee"`
}

// EstimateFee never fails the flow; an unavailable estimate is reported as empty.
func (a *WalletActions) EstimateFee(ctx context.Context, w Wallet, params SendTransferParams) EstimateFeeResult {
	fee, err := w.EstimateTransferFee(ctx, params.To, params.Amount)
	if err != nil {
		logging.AppLogger.Warn("fee estimate failed", zap.Error(err))
		return EstimateFeeResult{}
	}
	return EstimateFeeResult{Fee: fee}
}
