package routes

import (
	"aiwallet/aiwallet/agents/configs"
	"aiwallet/aiwallet/agents/core"
	"aiwallet/aiwallet/agents/getters"
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/controllers"
	"aiwallet/aiwallet/middlewares"
	"aiwallet/aiwallet/services/alchemy"
	"aiwallet/aiwallet/services/llm"
	"aiwallet/aiwallet/services/state"
	"aiwallet/aiwallet/services/wallet"
	"aiwallet/aiwallet/services/walletlist"
	"aiwallet/aiwallet/sources/psql"
	"aiwallet/aiwallet/sources/psql/dao"
	"aiwallet/aiwallet/types"
	utiltypes "aiwallet/aiwallet/utils/types"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
)

const (
	secret        = "test-secret"
	walletAddress = "0x00000000000000000000000000000000000000AA"
)

type replyLLM struct {
	mu    sync.Mutex
	reply string
}

func (p *replyLLM) Name() string { return "reply" }

func (p *replyLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reply, nil
}

func (p *replyLLM) set(reply string) {
	p.mu.Lock()
	p.reply = reply
	p.mu.Unlock()
}

type chainWallet struct {
	mu        sync.Mutex
	locked    bool
	toggles   int
	withdraws int
}

func (w *chainWallet) Address() string                                  { return walletAddress }
func (w *chainWallet) GetBalance(ctx context.Context) (string, error)    { return "1.5", nil }
func (w *chainWallet) GetDailyLimit(ctx context.Context) (string, error) { return "0.1", nil }
func (w *chainWallet) GetDailySpent(ctx context.Context) (string, error) { return "0.0", nil }

func (w *chainWallet) IsLocked(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.locked, nil
}

func (w *chainWallet) ExecuteTransaction(ctx context.Context, to, value string) (*ethtypes.Transaction, error) {
	return nil, errors.New("not used")
}

func (w *chainWallet) ToggleLock(ctx context.Context) (*ethtypes.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.toggles++
	w.locked = !w.locked
	return ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: uint64(w.toggles), Gas: 30000, GasPrice: big.NewInt(1)}), nil
}

func (w *chainWallet) EmergencyWithdraw(ctx context.Context) (*ethtypes.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.withdraws++
	return ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: uint64(100 + w.withdraws), Gas: 30000, GasPrice: big.NewInt(1)}), nil
}

func (w *chainWallet) EstimateTransferFee(ctx context.Context, to, value string) (string, error) {
	return "0.000021", nil
}

func (w *chainWallet) WaitMined(ctx context.Context, tx *ethtypes.Transaction) (*ethtypes.Receipt, error) {
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(3)}, nil
}

type provisioner struct{}

func (provisioner) Create(ctx context.Context, progress func(string)) (*wallet.Created, error) {
	progress(wallet.StageComplete)
	return &wallet.Created{
		Owner:           "0x00000000000000000000000000000000000000BB",
		ContractAddress: "0x00000000000000000000000000000000000000CC",
		PrivateKey:      "0xnewkey",
		Mnemonic:        "test test test test test test test test test test test junk",
		DeployTx:        "0xdeploy",
	}, nil
}

type activity struct{}

func (activity) Activity(ctx context.Context, address string, maxCount int) (alchemy.Activity, error) {
	return alchemy.Activity{Transfers: []alchemy.AssetTransfer{{Hash: "0xabc", From: address}}, TokenBalances: []alchemy.TokenBalance{}, LatestBlock: 9}, nil
}

type testServer struct {
	*httptest.Server
	llm    *replyLLM
	wallet *chainWallet
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	cfg := config.Config{JWTSecret: secret}

	db, err := psql.Open(ctx, sqlite.Open(":memory:"))
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(db.Close)

	st, err := state.NewService(config.Config{StateCacheTTL: time.Minute, TxWaitTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)

	ts := &testServer{llm: &replyLLM{}, wallet: &chainWallet{}}
	wallets := walletlist.NewManager(dao.NewWalletDAO(db.DB))
	open := func(ctx context.Context, rec walletlist.Record) (core.ChainWallet, error) { return ts.wallet, nil }
	dataGetters := getters.NewDataGetters(st, activity{})
	chatDAO := dao.NewChatMessageDAO(db.DB)
	userDAO := dao.NewUserDAO(db.DB)

	agent := core.NewWalletAgent(core.Deps{
		Provider:    ts.llm,
		Config:      configs.LoadConfig(""),
		Wallets:     wallets,
		Open:        open,
		Provisioner: provisioner{},
		State:       st,
		Getters:     dataGetters,
		History:     chatDAO,
	})
	walletCtrl := controllers.NewWalletsController(controllers.WalletsDeps{
		Wallets:     wallets,
		Open:        open,
		Provisioner: provisioner{},
		Import: func(ctx context.Context, secret, contract string) (walletlist.NewWallet, error) {
			if secret != "0xgood" {
				return walletlist.NewWallet{}, wallet.ErrInvalidKey
			}
			return walletlist.NewWallet{Address: "0x00000000000000000000000000000000000000DD", ContractAddress: contract, PrivateKey: secret}, nil
		},
		State:   st,
		Getters: dataGetters,
	})

	r := chi.NewRouter()
	r.Use(middlewares.RequestLogger)
	r.Mount("/health", HealthRoutes(controllers.NewHealthController(nil)))
	r.Mount("/auth", AuthRoutes(controllers.NewAuthController(userDAO, cfg)))
	r.Mount("/users", UserRoutes(controllers.NewUserController(userDAO), cfg))
	r.Mount("/api", AgentRoutes(controllers.NewAgentsController(agent), cfg))
	r.Mount("/chat", ChatRoutes(controllers.NewChatController(agent, core.NewConversationStore(), chatDAO, dao.NewChatSessionDAO(db.DB)), cfg))
	r.Mount("/wallets", WalletRoutes(walletCtrl, cfg))

	ts.Server = httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) login(t *testing.T, username string) string {
	t.Helper()
	var out types.LoginResponse
	if code := ts.do(t, "", "POST", "/auth/login", types.LoginRequest{Username: username}, &out); code != http.StatusOK {
		t.Fatalf("login: status %d", code)
	}
	return out.Token
}

func (ts *testServer) do(t *testing.T, token, method, path string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, ts.URL+path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestLoginAndAuth(t *testing.T) {
	ts := newTestServer(t)

	if code := ts.do(t, "", "GET", "/wallets", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", code)
	}
	if code := ts.do(t, "", "POST", "/auth/login", types.LoginRequest{}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty username, got %d", code)
	}

	token := ts.login(t, "alice")
	if token == "" {
		t.Fatal("empty token")
	}
	var me types.UserResponse
	if code := ts.do(t, token, "GET", "/users/me", nil, &me); code != http.StatusOK || me.Username != "alice" {
		t.Errorf("unexpected /users/me: %d %+v", code, me)
	}
	if code := ts.do(t, "", "GET", "/health", nil, nil); code != http.StatusOK {
		t.Errorf("health should be public, got %d", code)
	}
}

func TestAIAgentRelay(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	ts.llm.set(`{"action":"CHECK_BALANCE","message":"残高を確認します"}`)
	var out map[string]any
	if code := ts.do(t, token, "POST", "/api/ai-agent", types.AgentCommandRequest{Command: "残高は?"}, &out); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if out["action"] != "CHECK_BALANCE" || out["message"] != "残高を確認します" {
		t.Errorf("unexpected intent %v", out)
	}

	ts.llm.set("not json")
	out = nil
	ts.do(t, token, "POST", "/api/ai-agent", types.AgentCommandRequest{Command: "???"}, &out)
	if out["message"] == nil || out["action"] != "UNKNOWN" {
		t.Errorf("expected fallback intent, got %v", out)
	}

	if code := ts.do(t, token, "POST", "/api/ai-agent", types.AgentCommandRequest{}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing command, got %d", code)
	}
	req, _ := http.NewRequest("POST", ts.URL+"/api/ai-agent", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", resp.StatusCode)
	}
}

func TestChatSessions(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice")
	bob := ts.login(t, "bob")

	ts.llm.set(`{"action":"CHECK_BALANCE","message":"確認します"}`)
	var first utiltypes.ChatResponse
	if code := ts.do(t, alice, "POST", "/chat/", utiltypes.ChatRequest{Content: "残高は?"}, &first); code != http.StatusOK {
		t.Fatalf("chat: %d", code)
	}
	if first.SessionID == "" || len(first.Messages) == 0 {
		t.Fatalf("unexpected response %+v", first)
	}
	// No wallet yet: the dispatcher suggests creating one.
	if !strings.Contains(first.Messages[0].Content, "ウォレット") {
		t.Errorf("unexpected reply %q", first.Messages[0].Content)
	}

	var sessions []utiltypes.ChatSessionSummary
	ts.do(t, alice, "GET", "/chat/sessions", nil, &sessions)
	if len(sessions) != 1 || sessions[0].SessionID != first.SessionID || sessions[0].Title != "残高は?" {
		t.Errorf("unexpected sessions %+v", sessions)
	}

	var msgs []core.ChatMessage
	ts.do(t, alice, "GET", "/chat/session/"+first.SessionID+"/messages", nil, &msgs)
	if len(msgs) != 2 || msgs[0].Role != core.RoleUser || msgs[1].Role != core.RoleAssistant {
		t.Errorf("unexpected history %+v", msgs)
	}

	if code := ts.do(t, bob, "GET", "/chat/session/"+first.SessionID+"/messages", nil, nil); code != http.StatusNotFound {
		t.Errorf("other users must not see the session, got %d", code)
	}
	if code := ts.do(t, bob, "POST", "/chat/", utiltypes.ChatRequest{SessionID: first.SessionID, Content: "hi"}, nil); code != http.StatusNotFound {
		t.Errorf("other users must not post into the session, got %d", code)
	}
	if code := ts.do(t, alice, "POST", "/chat/", utiltypes.ChatRequest{Content: "  "}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty content, got %d", code)
	}

	if code := ts.do(t, alice, "DELETE", "/chat/session/"+first.SessionID, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete: %d", code)
	}
	if code := ts.do(t, alice, "DELETE", "/chat/session/"+first.SessionID, nil, nil); code != http.StatusNotFound {
		t.Errorf("second delete should be 404, got %d", code)
	}
}

func TestWalletLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	if code := ts.do(t, token, "GET", "/wallets/active/state", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 without a wallet, got %d", code)
	}

	var created types.CreatedWalletResponse
	if code := ts.do(t, token, "POST", "/wallets", types.CreateWalletRequest{Name: "main"}, &created); code != http.StatusCreated {
		t.Fatalf("create: %d", code)
	}
	if created.PrivateKey != "0xnewkey" || created.Mnemonic == "" || created.Wallet.PrivateKey != "" || !created.Wallet.IsActive {
		t.Errorf("unexpected create response %+v", created)
	}

	var imported walletlist.Record
	if code := ts.do(t, token, "POST", "/wallets/import", types.ImportWalletRequest{Secret: "0xbad", ContractAddress: walletAddress}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad key, got %d", code)
	}
	if code := ts.do(t, token, "POST", "/wallets/import", types.ImportWalletRequest{Name: "old", Secret: "0xgood", ContractAddress: walletAddress}, &imported); code != http.StatusCreated {
		t.Fatalf("import: %d", code)
	}
	if imported.IsActive || imported.PrivateKey != "" {
		t.Errorf("imported wallet should be inactive and redacted: %+v", imported)
	}

	var rec walletlist.Record
	ts.do(t, token, "PUT", "/wallets/"+imported.ID+"/active", nil, &rec)
	if !rec.IsActive {
		t.Errorf("switch did not activate: %+v", rec)
	}
	ts.do(t, token, "PUT", "/wallets/"+imported.ID+"/name", types.RenameWalletRequest{Name: "cold"}, &rec)
	if rec.Name != "cold" {
		t.Errorf("rename failed: %+v", rec)
	}

	var snap walletlist.Snapshot
	ts.do(t, token, "GET", "/wallets", nil, &snap)
	if len(snap.Wallets) != 2 || snap.ActiveWalletID != imported.ID {
		t.Fatalf("unexpected list %+v", snap)
	}
	for _, w := range snap.Wallets {
		if w.PrivateKey != "" {
			t.Error("list must not expose private keys")
		}
	}

	var st state.WalletState
	if code := ts.do(t, token, "GET", "/wallets/active/state?refresh=1", nil, &st); code != http.StatusOK || st.Balance != "1.5" {
		t.Errorf("unexpected state %d %+v", code, st)
	}

	var lock types.TxResponse
	if code := ts.do(t, token, "POST", "/wallets/active/lock", nil, &lock); code != http.StatusAccepted || lock.TxHash == "" {
		t.Errorf("unexpected lock response %d %+v", code, lock)
	}

	var withdraw types.TxResponse
	if code := ts.do(t, token, "POST", "/wallets/active/withdraw", nil, &withdraw); code != http.StatusAccepted || withdraw.TxHash == "" || withdraw.TxHash == lock.TxHash {
		t.Errorf("unexpected withdraw response %d %+v", code, withdraw)
	}

	var act alchemy.Activity
	if code := ts.do(t, token, "GET", "/wallets/active/activity?limit=5", nil, &act); code != http.StatusOK || len(act.Transfers) != 1 || act.LatestBlock != 9 {
		t.Errorf("unexpected activity %d %+v", code, act)
	}

	if code := ts.do(t, token, "PUT", "/wallets/missing/active", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown wallet, got %d", code)
	}
	ts.do(t, token, "DELETE", "/wallets/"+imported.ID, nil, &snap)
	if len(snap.Wallets) != 1 || snap.ActiveWalletID != created.Wallet.ID {
		t.Errorf("removing the active wallet should hand activation over: %+v", snap)
	}
}
