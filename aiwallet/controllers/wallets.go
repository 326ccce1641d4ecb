package controllers

import (
	"aiwallet/aiwallet/agents/actions"
	"aiwallet/aiwallet/agents/core"
	"aiwallet/aiwallet/agents/getters"
	"aiwallet/aiwallet/services/alchemy"
	"aiwallet/aiwallet/services/state"
	"aiwallet/aiwallet/services/walletlist"
	"aiwallet/aiwallet/types"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

var (
	ErrProvisioningDisabled = errors.New("wallet provisioning is not configured")
	ErrMissingSecret        = errors.New("secret and contractAddress are required")
)

// Importer binds an existing contract from a key or mnemonic and returns
// what the wallet list stores for it.
type Importer func(ctx context.Context, secret, contractAddress string) (walletlist.NewWallet, error)

type WalletsDeps struct {
	Wallets     *walletlist.Manager
	Open        core.WalletOpener
	Provisioner core.Provisioner
	Import      Importer
	State       *state.Service
	Getters     *getters.DataGetters
	Heads       state.HeadReader
}

// WalletsController manages a user's wallet list and the active wallet.
type WalletsController struct {
	wallets     *walletlist.Manager
	open        core.WalletOpener
	provisioner core.Provisioner
	importer    Importer
	state       *state.Service
	getters     *getters.DataGetters
	heads       state.HeadReader
	actions     *actions.WalletActions
}

func NewWalletsController(d WalletsDeps) *WalletsController {
	return &WalletsController{
		wallets:     d.Wallets,
		open:        d.Open,
		provisioner: d.Provisioner,
		importer:    d.Import,
		state:       d.State,
		getters:     d.Getters,
		heads:       d.Heads,
		actions:     actions.NewWalletActions(),
	}
}

func uid(userID int) string { return strconv.Itoa(userID) }

func redact(rec walletlist.Record) walletlist.Record {
	rec.PrivateKey = ""
	return rec
}

func (c *WalletsController) List(ctx context.Context, userID int) (walletlist.Snapshot, error) {
	snap, err := c.wallets.List(ctx, uid(userID))
	if err != nil {
		return walletlist.Snapshot{}, err
	}
	return snap.Redacted(), nil
}

// Create deploys a new wallet and makes it active. The response is the only
// place the key and mnemonic are ever returned.
func (c *WalletsController) Create(ctx context.Context, userID int, name string) (types.CreatedWalletResponse, error) {
	if c.provisioner == nil {
		return types.CreatedWalletResponse{}, ErrProvisioningDisabled
	}
	created, err := c.provisioner.Create(ctx, func(stage string) {
		logging.AppLogger.Info("wallet provisioning", zap.Int("user_id", userID), zap.String("stage", stage))
	})
	if err != nil {
		return types.CreatedWalletResponse{}, err
	}
	rec, err := c.wallets.Add(ctx, uid(userID), walletlist.NewWallet{
		Name:            name,
		Address:         created.Owner,
		ContractAddress: created.ContractAddress,
		PrivateKey:      created.PrivateKey,
	})
	if err != nil {
		return types.CreatedWalletResponse{}, err
	}
	if rec, err = c.wallets.SwitchActive(ctx, uid(userID), rec.ID); err != nil {
		return types.CreatedWalletResponse{}, err
	}
	return types.CreatedWalletResponse{
		Wallet:     redact(rec),
		PrivateKey: created.PrivateKey,
		Mnemonic:   created.Mnemonic,
		DeployTx:   created.DeployTx,
	}, nil
}

func (c *WalletsController) Import(ctx context.Context, userID int, req types.ImportWalletRequest) (walletlist.Record, error) {
	if strings.TrimSpace(req.Secret) == "" || strings.TrimSpace(req.ContractAddress) == "" {
		return walletlist.Record{}, ErrMissingSecret
	}
	nw, err := c.importer(ctx, req.Secret, req.ContractAddress)
	if err != nil {
		return walletlist.Record{}, err
	}
	nw.Name = req.Name
	rec, err := c.wallets.Add(ctx, uid(userID), nw)
	if err != nil {
		return walletlist.Record{}, err
	}
	return redact(rec), nil
}

func (c *WalletsController) SwitchActive(ctx context.Context, userID int, id string) (walletlist.Record, error) {
	rec, err := c.wallets.SwitchActive(ctx, uid(userID), id)
	return redact(rec), err
}

func (c *WalletsController) Rename(ctx context.Context, userID int, id, name string) (walletlist.Record, error) {
	rec, err := c.wallets.Rename(ctx, uid(userID), id, name)
	return redact(rec), err
}

func (c *WalletsController) Remove(ctx context.Context, userID int, id string) (walletlist.Snapshot, error) {
	snap, err := c.wallets.Remove(ctx, uid(userID), id)
	if err != nil {
		return walletlist.Snapshot{}, err
	}
	return snap.Redacted(), nil
}

func (c *WalletsController) activeWallet(ctx context.Context, userID int) (core.ChainWallet, error) {
	rec, err := c.wallets.Active(ctx, uid(userID))
	if err != nil {
		return nil, err
	}
	return c.open(ctx, rec)
}

func (c *WalletsController) State(ctx context.Context, userID int, refresh bool) (state.WalletState, error) {
	w, err := c.activeWallet(ctx, userID)
	if err != nil {
		return state.WalletState{}, err
	}
	return c.getters.State(ctx, w, refresh)
}

// ToggleLock flips the contract lock and tracks the transaction in the
// background so the cached state is refreshed once it is mined.
func (c *WalletsController) ToggleLock(ctx context.Context, userID int) (types.TxResponse, error) {
	w, err := c.activeWallet(ctx, userID)
	if err != nil {
		return types.TxResponse{}, err
	}
	res, err := c.actions.ToggleLock(ctx, w)
	if err != nil {
		return types.TxResponse{}, err
	}
	c.track(ctx, w, res, "lock toggle")
	return types.TxResponse{TxHash: res.TxHash}, nil
}

// EmergencyWithdraw sends the active wallet's whole balance back to its owner.
func (c *WalletsController) EmergencyWithdraw(ctx context.Context, userID int) (types.TxResponse, error) {
	w, err := c.activeWallet(ctx, userID)
	if err != nil {
		return types.TxResponse{}, err
	}
	res, err := c.actions.EmergencyWithdraw(ctx, w)
	if err != nil {
		return types.TxResponse{}, err
	}
	c.track(ctx, w, res, "emergency withdraw")
	return types.TxResponse{TxHash: res.TxHash}, nil
}

func (c *WalletsController) track(ctx context.Context, w core.ChainWallet, res actions.TxResult, what string) {
	c.state.Invalidate(w.Address())
	c.state.TrackTransaction(ctx, w, w, res.Tx, func(ev state.TxEvent) {
		if ev.Status == state.TxFailed {
			logging.ErrorLogger.Error(what+" failed", zap.String("tx", ev.Hash), zap.Error(ev.Err))
		}
	})
}

func (c *WalletsController) Activity(ctx context.Context, userID int, limit int) (alchemy.Activity, error) {
	w, err := c.activeWallet(ctx, userID)
	if err != nil {
		return alchemy.Activity{}, err
	}
	return c.getters.Activity(ctx, w, limit)
}

// WatchState pushes the active wallet's state on every new block until the
// polling bound is reached or the client goes away.
func (c *WalletsController) WatchState(ctx context.Context, conn *websocket.Conn, userID int) {
	defer conn.Close(websocket.StatusInternalError, "internal error")

	w, err := c.activeWallet(ctx, userID)
	if err != nil {
		wsjson.Write(ctx, conn, map[string]string{"error": actions.Describe(err)})
		conn.Close(websocket.StatusPolicyViolation, "no wallet")
		return
	}
	if st, err := c.state.Get(ctx, w); err == nil {
		if wsjson.Write(ctx, conn, st) != nil {
			return
		}
	}

	ctx = conn.CloseRead(ctx)
	err = c.state.Watch(ctx, w, c.heads, func(st state.WalletState) bool {
		return wsjson.Write(ctx, conn, st) == nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.AppLogger.Warn("state watch ended", zap.Error(err))
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
