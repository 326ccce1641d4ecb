package wallet

import (
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Creation stages reported through the progress callback.
const (
	StageInit     = "init"
	StageContract = "contract"
	StageSecurity = "security"
	StageComplete = "complete"
)

// Created is the outcome of provisioning. PrivateKey and Mnemonic are meant
// to be shown to the user once and never logged.
type Created struct {
	Wallet          *AIWallet
	Owner           string
	ContractAddress string
	PrivateKey      string
	Mnemonic        string
	DeployTx        string
}

// Provisioner deploys a new wallet contract per user with the admin key.
type Provisioner struct {
	backend      Backend
	admin        *ecdsa.PrivateKey
	chainID      int64
	artifactPath string
	dailyLimit   *big.Int
	gasFund      *big.Int
}

func NewProvisioner(backend Backend, cfg config.Config) (*Provisioner, error) {
	admin, err := KeyFromHex(cfg.AdminPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("admin key: %w", err)
	}
	limit, err := ParseEther(cfg.DefaultDailyLimit)
	if err != nil {
		return nil, fmt.Errorf("daily limit: %w", err)
	}
	fund, err := ParseEther(cfg.InitialGasFund)
	if err != nil {
		return nil, fmt.Errorf("initial gas fund: %w", err)
	}
	return &Provisioner{
		backend:      backend,
		admin:        admin,
		chainID:      cfg.ChainID,
		artifactPath: cfg.WalletArtifactPath,
		dailyLimit:   limit,
		gasFund:      fund,
	}, nil
}

// AdminAddress is the deployer account.
func (p *Provisioner) AdminAddress() string { return keyAddress(p.admin).Hex() }

// Create runs the full provisioning flow: network check, key generation,
// deployment, whitelisting and optional gas funding.
func (p *Provisioner) Create(ctx context.Context, progress func(stage string)) (*Created, error) {
	defer logging.LogDuration(ctx, "wallet_provision")()
	report := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	report(StageInit)
	chainID, err := p.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if chainID.Int64() != p.chainID {
		return nil, fmt.Errorf("%w: expected chain %d, got %s", ErrWrongNetwork, p.chainID, chainID)
	}
	parsedABI, bytecode, err := LoadArtifact(p.artifactPath)
	if err != nil {
		return nil, err
	}

	mnemonic, err := NewMnemonic()
	if err != nil {
		return nil, fmt.Errorf("mnemonic: %w", err)
	}
	ownerKey, err := KeyFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	owner := keyAddress(ownerKey)

	report(StageContract)
	opts, err := bind.NewKeyedTransactorWithChainID(p.admin, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	contractAddr, deployTx, _, err := bind.DeployContract(opts, parsedABI, bytecode, p.backend, owner, p.dailyLimit)
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	if _, err := bind.WaitDeployed(ctx, p.backend, deployTx); err != nil {
		return nil, fmt.Errorf("wait deployed: %w", err)
	}
	logging.AppLogger.Info("wallet contract deployed",
		zap.String("contract", contractAddr.Hex()),
		zap.String("owner", owner.Hex()),
		zap.String("tx", deployTx.Hash().Hex()))

	report(StageSecurity)
	admin, err := newWithKey(ctx, p.admin, contractAddr.Hex(), p.backend)
	if err != nil {
		return nil, err
	}
	wlTx, err := admin.UpdateWhitelist(ctx, owner.Hex(), true)
	if err != nil {
		return nil, fmt.Errorf("whitelist owner: %w", err)
	}
	if _, err := waitSuccess(ctx, p.backend, wlTx); err != nil {
		return nil, fmt.Errorf("whitelist owner: %w", err)
	}
	if p.gasFund.Sign() > 0 {
		if err := p.fund(ctx, chainID, owner); err != nil {
			return nil, err
		}
	}

	w, err := newWithKey(ctx, ownerKey, contractAddr.Hex(), p.backend)
	if err != nil {
		return nil, err
	}
	report(StageComplete)
	return &Created{
		Wallet:          w,
		Owner:           owner.Hex(),
		ContractAddress: contractAddr.Hex(),
		PrivateKey:      keyHex(ownerKey),
		Mnemonic:        mnemonic,
		DeployTx:        deployTx.Hash().Hex(),
	}, nil
}

// fund sends the configured gas allowance from the admin to the new owner.
func (p *Provisioner) fund(ctx context.Context, chainID *big.Int, to common.Address) error {
	from := keyAddress(p.admin)
	nonce, err := p.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return fmt.Errorf("fund nonce: %w", err)
	}
	tip, err := p.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return fmt.Errorf("fund tip: %w", err)
	}
	head, err := p.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("fund head: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       21000,
		To:        &to,
		Value:     p.gasFund,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), p.admin)
	if err != nil {
		return fmt.Errorf("fund sign: %w", err)
	}
	if err := p.backend.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("fund send: %w", err)
	}
	if _, err := waitSuccess(ctx, p.backend, signed); err != nil {
		return fmt.Errorf("fund wait: %w", err)
	}
	return nil
}

// Import binds an existing wallet contract from a private key or mnemonic.
// The key must be the contract's owner.
func Import(ctx context.Context, backend Backend, secret, contractAddress string) (*AIWallet, error) {
	key, err := ParseSecret(secret)
	if err != nil {
		return nil, err
	}
	w, err := newWithKey(ctx, key, contractAddress, backend)
	if err != nil {
		return nil, err
	}
	owner, err := w.ContractOwner(ctx)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(owner, w.Owner()) {
		return nil, fmt.Errorf("%w: owner is %s", ErrNotOwner, owner)
	}
	return w, nil
}
