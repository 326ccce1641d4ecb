package wallet

import (
	"aiwallet/aiwallet/utils/logging"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrWrongNetwork   = errors.New("connected to the wrong network")
	ErrInvalidAddress = errors.New("invalid address")
	ErrReverted       = errors.New("transaction reverted")
	ErrNotOwner       = errors.New("key does not own the wallet contract")
)

// Backend is what the wallet needs from a chain connection. *ethclient.Client
// satisfies it, as does the simulated backend client used in tests.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// AIWallet holds a signing key and a handle on its deployed wallet contract.
// Every method is a single chain call.
type AIWallet struct {
	backend  Backend
	key      *ecdsa.PrivateKey
	owner    common.Address
	address  common.Address
	chainID  *big.Int
	contract *bind.BoundContract
}

// New binds an owner key to a deployed wallet contract.
func New(ctx context.Context, privateKeyHex, contractAddress string, backend Backend) (*AIWallet, error) {
	key, err := KeyFromHex(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return newWithKey(ctx, key, contractAddress, backend)
}

func newWithKey(ctx context.Context, key *ecdsa.PrivateKey, contractAddress string, backend Backend) (*AIWallet, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, contractAddress)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	addr := common.HexToAddress(contractAddress)
	return &AIWallet{
		backend:  backend,
		key:      key,
		owner:    keyAddress(key),
		address:  addr,
		chainID:  chainID,
		contract: bind.NewBoundContract(addr, parsedWalletABI, backend, backend, backend),
	}, nil
}

// Address is the contract address, which is where the funds live.
func (w *AIWallet) Address() string { return w.address.Hex() }

// Owner is the EOA that signs for the contract.
func (w *AIWallet) Owner() string { return w.owner.Hex() }

func (w *AIWallet) PrivateKeyHex() string { return keyHex(w.key) }

func (w *AIWallet) GetBalance(ctx context.Context) (string, error) {
	defer logging.LogDuration(ctx, "wallet_get_balance")()
	bal, err := w.backend.BalanceAt(ctx, w.address, nil)
	if err != nil {
		return "", fmt.Errorf("get balance: %w", err)
	}
	return FormatEther(bal), nil
}

func (w *AIWallet) GetDailyLimit(ctx context.Context) (string, error) {
	v, err := w.callUint(ctx, "dailyLimit")
	if err != nil {
		return "", err
	}
	return FormatEther(v), nil
}

func (w *AIWallet) GetDailySpent(ctx context.Context) (string, error) {
	v, err := w.callUint(ctx, "dailySpent")
	if err != nil {
		return "", err
	}
	return FormatEther(v), nil
}

func (w *AIWallet) IsLocked(ctx context.Context) (bool, error) {
	var out []interface{}
	if err := w.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isLocked"); err != nil {
		return false, fmt.Errorf("isLocked: %w", err)
	}
	locked, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isLocked: unexpected result %T", out[0])
	}
	return locked, nil
}

// ContractOwner reads owner() from the contract itself.
func (w *AIWallet) ContractOwner(ctx context.Context) (string, error) {
	var out []interface{}
	if err := w.contract.Call(&bind.CallOpts{Context: ctx}, &out, "owner"); err != nil {
		if errors.Is(err, bind.ErrNoCode) {
			return "", fmt.Errorf("%w: no contract at %s", ErrInvalidAddress, w.address.Hex())
		}
		return "", fmt.Errorf("owner: %w", err)
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("owner: unexpected result %T", out[0])
	}
	return addr.Hex(), nil
}

func (w *AIWallet) callUint(ctx context.Context, method string) (*big.Int, error) {
	defer logging.LogDuration(ctx, "wallet_call_"+method)()
	var out []interface{}
	if err := w.contract.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result %T", method, out[0])
	}
	return v, nil
}

// ExecuteTransaction submits a transfer through the contract and returns the
// pending transaction. The caller waits for the receipt.
func (w *AIWallet) ExecuteTransaction(ctx context.Context, to, value string) (*types.Transaction, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	wei, err := ParseEther(value)
	if err != nil {
		return nil, err
	}
	return w.transact(ctx, "executeTransaction", common.HexToAddress(to), wei)
}

func (w *AIWallet) ToggleLock(ctx context.Context) (*types.Transaction, error) {
	return w.transact(ctx, "toggleLock")
}

func (w *AIWallet) UpdateWhitelist(ctx context.Context, account string, status bool) (*types.Transaction, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, account)
	}
	return w.transact(ctx, "updateWhitelist", common.HexToAddress(account), status)
}

func (w *AIWallet) EmergencyWithdraw(ctx context.Context) (*types.Transaction, error) {
	return w.transact(ctx, "emergencyWithdraw")
}

func (w *AIWallet) transact(ctx context.Context, method string, args ...interface{}) (*types.Transaction, error) {
	defer logging.LogDuration(ctx, "wallet_tx_"+method)()
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, w.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	tx, err := w.contract.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return tx, nil
}

// EstimateTransferFee estimates gas * gas price for an executeTransaction call,
// in ether.
func (w *AIWallet) EstimateTransferFee(ctx context.Context, to, value string) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	wei, err := ParseEther(value)
	if err != nil {
		return "", err
	}
	data, err := parsedWalletABI.Pack("executeTransaction", common.HexToAddress(to), wei)
	if err != nil {
		return "", err
	}
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{From: w.owner, To: &w.address, Data: data})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}
	price, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	return FormatEther(new(big.Int).Mul(price, new(big.Int).SetUint64(gas))), nil
}

// WaitMined blocks until tx is mined and reports a failed receipt as an error.
func (w *AIWallet) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return waitSuccess(ctx, w.backend, tx)
}

func waitSuccess(ctx context.Context, b bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, b, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, tx.Hash().Hex())
	}
	return receipt, nil
}
