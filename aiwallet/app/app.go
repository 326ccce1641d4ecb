// Package app wires the service graph shared by the HTTP server and the CLI.
package app

import (
	"aiwallet/aiwallet/agents/configs"
	"aiwallet/aiwallet/agents/core"
	"aiwallet/aiwallet/agents/getters"
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/controllers"
	"aiwallet/aiwallet/services/alchemy"
	"aiwallet/aiwallet/services/llm"
	"aiwallet/aiwallet/services/state"
	"aiwallet/aiwallet/services/wallet"
	"aiwallet/aiwallet/services/walletlist"
	"aiwallet/aiwallet/sources/psql"
	"aiwallet/aiwallet/sources/psql/dao"
	"aiwallet/aiwallet/sources/storage"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

type App struct {
	Config      config.Config
	DB          *psql.Database
	RPC         *rpc.Client
	Eth         *ethclient.Client
	Alchemy     *alchemy.Client
	State       *state.Service
	Getters     *getters.DataGetters
	Wallets     *walletlist.Manager
	Provisioner core.Provisioner
	Agent       *core.WalletAgent
	Convs       *core.ConversationStore

	UserDAO    *dao.UserDAO
	ChatDAO    *dao.ChatMessageDAO
	SessionDAO *dao.ChatSessionDAO
}

// New connects every backend. The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg, Convs: core.NewConversationStore()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.DB = db
	a.UserDAO = dao.NewUserDAO(db.DB)
	a.ChatDAO = dao.NewChatMessageDAO(db.DB)
	a.SessionDAO = dao.NewChatSessionDAO(db.DB)

	// One connection serves both the standard and the Alchemy-specific methods.
	a.RPC, err = rpc.DialContext(ctx, cfg.RPCURL())
	if err != nil {
		return nil, fmt.Errorf("rpc dial: %w", err)
	}
	a.Eth = ethclient.NewClient(a.RPC)
	a.Alchemy = alchemy.NewClient(a.RPC, cfg.AlchemyNetwork)

	store, err := walletStore(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	a.Wallets = walletlist.NewManager(store)

	a.State, err = state.NewService(cfg)
	if err != nil {
		return nil, err
	}
	a.Getters = getters.NewDataGetters(a.State, a.Alchemy)

	if cfg.AdminPrivateKey != "" {
		p, err := wallet.NewProvisioner(a.Eth, cfg)
		if err != nil {
			return nil, fmt.Errorf("provisioner: %w", err)
		}
		logging.AppLogger.Info("wallet provisioning enabled", zap.String("admin", p.AdminAddress()))
		a.Provisioner = p
	} else {
		logging.AppLogger.Warn("ADMIN_PRIVATE_KEY not set, wallet creation is disabled")
	}

	a.Agent = core.NewWalletAgent(core.Deps{
		Provider:    llm.NewProvider(cfg),
		Config:      configs.LoadConfig(cfg.PromptsFile),
		Wallets:     a.Wallets,
		Open:        a.Open,
		Provisioner: a.Provisioner,
		State:       a.State,
		Getters:     a.Getters,
		History:     a.ChatDAO,
	})
	ok = true
	return a, nil
}

// walletStore picks the wallet list backend and wraps it with at-rest
// encryption when a key is configured.
func walletStore(ctx context.Context, cfg config.Config, db *psql.Database) (walletlist.Store, error) {
	var store walletlist.Store
	switch cfg.StorageBackend {
	case "minio":
		objects, err := storage.NewMinIOClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		store = storage.NewSnapshotStore(objects)
	case "memory":
		logging.AppLogger.Warn("wallet lists are kept in memory and lost on restart")
		store = walletlist.NewMemoryStore()
	default:
		store = dao.NewWalletDAO(db.DB)
	}
	if cfg.WalletEncryptionKey != "" {
		store = walletlist.NewEncryptingStore(store, cfg.WalletEncryptionKey)
	}
	return store, nil
}

// Open binds a stored wallet record to the chain.
func (a *App) Open(ctx context.Context, rec walletlist.Record) (core.ChainWallet, error) {
	w, err := wallet.New(ctx, rec.PrivateKey, rec.ContractAddress, a.Eth)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Import validates a secret against a deployed contract.
func (a *App) Import(ctx context.Context, secret, contractAddress string) (walletlist.NewWallet, error) {
	w, err := wallet.Import(ctx, a.Eth, secret, contractAddress)
	if err != nil {
		return walletlist.NewWallet{}, err
	}
	return walletlist.NewWallet{
		Address:         w.Owner(),
		ContractAddress: w.Address(),
		PrivateKey:      w.PrivateKeyHex(),
	}, nil
}

func (a *App) WalletsDeps() controllers.WalletsDeps {
	return controllers.WalletsDeps{
		Wallets:     a.Wallets,
		Open:        a.Open,
		Provisioner: a.Provisioner,
		Import:      a.Import,
		State:       a.State,
		Getters:     a.Getters,
		Heads:       a.Eth,
	}
}

// HealthChecks pings the database and the chain endpoint.
func (a *App) HealthChecks() map[string]controllers.HealthCheck {
	return map[string]controllers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"chain": func(ctx context.Context) error {
			_, err := a.Alchemy.LatestBlock(ctx)
			return err
		},
	}
}

func (a *App) Close() {
	if a.State != nil {
		a.State.Close()
	}
	if a.RPC != nil {
		a.RPC.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
