package core

import (
	"aiwallet/aiwallet/agents/actions"
	"aiwallet/aiwallet/agents/configs"
	"aiwallet/aiwallet/agents/getters"
	"aiwallet/aiwallet/agents/intent"
	"aiwallet/aiwallet/services/llm"
	"aiwallet/aiwallet/services/state"
	"aiwallet/aiwallet/services/wallet"
	"aiwallet/aiwallet/services/walletlist"
	"aiwallet/aiwallet/sources/psql/models"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var ErrEmptyCommand = errors.New("command is empty")

// Deterministic menu entries handled without the classifier.
const (
	OptionRetry         = "もう一度試す"
	OptionHistory       = "トランザクション履歴を見る"
	OptionConfirmCreate = "理解して作成を続ける"
)

const historyLimit = 5

const createWarning = "ウォレットを作成すると秘密鍵とリカバリーフレーズが一度だけ表示されます。必ず安全な場所に保管してください。作成を続けますか?"

// ChainWallet is an opened wallet the agent can read, drive and track.
type ChainWallet interface {
	actions.Wallet
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// WalletOpener binds a stored wallet record to the chain.
type WalletOpener func(ctx context.Context, rec walletlist.Record) (ChainWallet, error)

// Provisioner deploys new wallets; *wallet.Provisioner satisfies it.
type Provisioner interface {
	Create(ctx context.Context, progress func(stage string)) (*wallet.Created, error)
}

// ChatHistory mirrors conversation turns to storage; *dao.ChatMessageDAO satisfies it.
type ChatHistory interface {
	SaveMessages(ctx context.Context, sessionID string, userID int, msgs []models.ChatMessage) error
}

type Deps struct {
	Provider    llm.Provider
	Config      *configs.AgentConfig
	Wallets     *walletlist.Manager
	Open        WalletOpener
	Provisioner Provisioner
	State       *state.Service
	Getters     *getters.DataGetters
	History     ChatHistory
}

// WalletAgent routes each user command to a wallet operation and answers with
// chat messages.
type WalletAgent struct {
	Name        string
	Config      *configs.AgentConfig
	classifier  *Classifier
	wallets     *walletlist.Manager
	open        WalletOpener
	provisioner Provisioner
	state       *state.Service
	getters     *getters.DataGetters
	history     ChatHistory
	dataActions *actions.WalletActions
}

func NewWalletAgent(d Deps) *WalletAgent {
	a := &WalletAgent{
		Name:        d.Config.AgentName,
		Config:      d.Config,
		classifier:  NewClassifier(d.Provider, d.Config),
		wallets:     d.Wallets,
		open:        d.Open,
		provisioner: d.Provisioner,
		state:       d.State,
		getters:     d.Getters,
		history:     d.History,
		dataActions: actions.NewWalletActions(),
	}
	logging.AppLogger.Info("WalletAgent initialized",
		zap.String("agent_name", a.Name),
		zap.String("provider", d.Provider.Name()))
	return a
}

// turn collects the replies of one command. stored differs from shown only
// for secrets, which are shown once and never kept.
type turn struct {
	shown  []ChatMessage
	stored []ChatMessage
}

func (t *turn) add(m ChatMessage) {
	t.shown = append(t.shown, m)
	t.stored = append(t.stored, m)
}

func (t *turn) addSecret(shown, stored ChatMessage) {
	t.shown = append(t.shown, shown)
	t.stored = append(t.stored, stored)
}

// ProcessCommand runs one user turn and returns the assistant replies.
func (a *WalletAgent) ProcessCommand(ctx context.Context, conv *Conversation, userID int, text string) ([]ChatMessage, error) {
	defer logging.LogDuration(ctx, "process_command")()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyCommand
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	userMsg := newMessage(RoleUser, KindText, text, nil)
	t := &turn{}
	a.dispatch(ctx, conv, userID, text, t)

	conv.append(userMsg)
	conv.append(t.stored...)
	a.persist(ctx, conv, userID, append([]ChatMessage{userMsg}, t.stored...))
	return t.shown, nil
}

func (a *WalletAgent) dispatch(ctx context.Context, conv *Conversation, userID int, text string, t *turn) {
	draft := conv.draft
	awaitingCreate := conv.awaitingCreate
	conv.awaitingCreate = false

	switch {
	case text == intent.OptionStartOver:
		conv.draft = intent.NewTransferDraft()
		conv.lastFailed, conv.lastError = "", ""
		t.add(a.reply(KindText, "最初からやり直しましょう。何をしますか?", a.selectUI(configs.MenuInitial)))
		return
	case draft.Active() && intent.IsCancelOption(text):
		draft.Cancel()
		t.add(a.reply(KindText, "送金をキャンセルしました。", a.selectUI(configs.MenuWallet)))
		return
	case awaitingCreate && intent.IsCancelOption(text):
		t.add(a.reply(KindText, "ウォレットの作成をキャンセルしました。", a.selectUI(configs.MenuInitial)))
		return
	case awaitingCreate && text == OptionConfirmCreate:
		a.createWallet(ctx, conv, userID, text, t)
		return
	case draft.Step == intent.StepConfirm && (intent.IsConfirmOption(text) || text == OptionRetry):
		a.executeTransfer(ctx, conv, userID, t)
		return
	case text == OptionRetry && conv.lastFailed != "":
		text = conv.lastFailed
	case text == OptionHistory:
		a.showHistory(ctx, conv, userID, t)
		return
	}

	w, cctx, err := a.walletContext(ctx, userID)
	if err != nil {
		a.fail(conv, text, err, t)
		return
	}
	if draft.Active() {
		cctx.Draft = *draft
	}
	cctx.LastError = conv.lastError

	it := a.classifier.Classify(ctx, text, cctx)
	conv.lastError = ""

	switch it.Action {
	case intent.CheckBalance:
		if w == nil {
			t.add(a.noWallet())
			return
		}
		a.checkBalance(ctx, conv, text, w, t)
	case intent.SendTransaction:
		if w == nil {
			t.add(a.noWallet())
			return
		}
		a.collectTransfer(ctx, conv, w, it, t)
	case intent.WalletSetup:
		a.walletSetup(conv, userID, it, t)
	default:
		ui := it.UI
		if ui == nil {
			if w != nil {
				ui = a.selectUI(configs.MenuWallet)
			} else {
				ui = a.selectUI(configs.MenuInitial)
			}
		}
		t.add(a.reply(KindText, it.Message, ui))
	}
}

// walletContext opens the active wallet, if any, and fills the wallet part of
// the classifier context from cached state.
func (a *WalletAgent) walletContext(ctx context.Context, userID int) (ChainWallet, ClassifyContext, error) {
	var cctx ClassifyContext
	_, w, err := a.activeWallet(ctx, userID)
	if err != nil && !errors.Is(err, walletlist.ErrNoActiveWallet) {
		return nil, cctx, err
	}
	if w == nil {
		return nil, cctx, nil
	}
	cctx.HasWallet, cctx.Address = true, w.Address()
	if st, err := a.state.Get(ctx, w); err == nil {
		cctx.Balance, cctx.Locked = st.Balance, st.IsLocked
	} else {
		logging.AppLogger.Warn("wallet state unavailable for prompt", zap.Error(err))
	}
	return w, cctx, nil
}

// Classify runs the classifier on its own, with the user's wallet context and
// no conversation state. Nothing is executed.
func (a *WalletAgent) Classify(ctx context.Context, userID int, command string) (intent.Intent, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return intent.Intent{}, ErrEmptyCommand
	}
	_, cctx, err := a.walletContext(ctx, userID)
	if err != nil {
		return intent.Intent{}, err
	}
	return a.classifier.Classify(ctx, command, cctx), nil
}

// activeWallet opens the user's active wallet. A user without one gets
// walletlist.ErrNoActiveWallet and nil values.
func (a *WalletAgent) activeWallet(ctx context.Context, userID int) (walletlist.Record, ChainWallet, error) {
	rec, err := a.wallets.Active(ctx, strconv.Itoa(userID))
	if err != nil {
		return walletlist.Record{}, nil, err
	}
	w, err := a.open(ctx, rec)
	if err != nil {
		return rec, nil, err
	}
	return rec, w, nil
}

func (a *WalletAgent) checkBalance(ctx context.Context, conv *Conversation, text string, w ChainWallet, t *turn) {
	st, err := a.state.Refresh(ctx, w, true)
	if err != nil {
		a.fail(conv, text, err, t)
		return
	}
	t.add(a.reply(KindText, formatState(st), a.selectUI(configs.MenuWallet)))
}

func formatState(st state.WalletState) string {
	lock := "解除中"
	if st.IsLocked {
		lock = "ロック中"
	}
	var b strings.Builder
	b.WriteString("現在の残高は " + st.Balance + " ETH です。\n")
	b.WriteString("1日の送金上限: " + st.DailyLimit + " ETH (本日の使用額: " + st.DailySpent + " ETH)\n")
	b.WriteString("ロック状態: " + lock)
	return b.String()
}

// collectTransfer merges what the classifier extracted into the draft and asks
// for the next missing field, or shows the confirmation.
func (a *WalletAgent) collectTransfer(ctx context.Context, conv *Conversation, w ChainWallet, it intent.Intent, t *turn) {
	draft := conv.draft
	if it.Params != nil && it.Params.Step == intent.StepCancelled {
		draft.Cancel()
		t.add(a.reply(KindText, orDefault(it.Message, "送金をキャンセルしました。"), a.selectUI(configs.MenuWallet)))
		return
	}

	switch draft.Merge(it.Params) {
	case intent.StepInputAddress:
		t.add(a.reply(KindText, orDefault(it.Message, "送金先のアドレスを入力してください。"), &intent.UI{Type: intent.UIInput}))
	case intent.StepInputAmount:
		t.add(a.reply(KindText, orDefault(it.Message, "送金する金額(ETH)を入力してください。"), &intent.UI{Type: intent.UIInput}))
	default:
		t.add(a.confirmation(ctx, w, draft))
	}
}

func (a *WalletAgent) confirmation(ctx context.Context, w ChainWallet, d *intent.TransferDraft) ChatMessage {
	fee := a.dataActions.EstimateFee(ctx, w, actions.SendTransferParams{To: d.To, Amount: d.Amount}).Fee
	if fee == "" {
		fee = "取得できませんでした"
	} else {
		fee += " ETH"
	}
	content := "以下の内容で送金します。よろしいですか?\n" +
		"送金先: " + d.To + "\n" +
		"金額: " + d.Amount + " ETH\n" +
		"推定手数料: " + fee
	return a.reply(KindText, content, &intent.UI{Type: intent.UIConfirm, Options: a.Config.Menu(configs.MenuConfirmTransfer)})
}

// executeTransfer validates the confirmed draft and submits it. Validation
// failures keep the draft at confirm with the bad fields cleared.
func (a *WalletAgent) executeTransfer(ctx context.Context, conv *Conversation, userID int, t *turn) {
	draft := conv.draft
	to, amount, err := draft.Confirm()
	if err != nil {
		var ve *intent.ValidationError
		if errors.As(err, &ve) {
			lines := make([]string, 0, len(ve.Errs)+1)
			for _, e := range ve.Errs {
				lines = append(lines, actions.Describe(e))
			}
			lines = append(lines, "正しい値を入力してください。")
			conv.lastError = ve.Error()
			t.add(a.reply(KindError, strings.Join(lines, "\n"), &intent.UI{Type: intent.UIInput}))
			return
		}
		a.fail(conv, intent.OptionExecuteTransfer, err, t)
		return
	}

	_, w, err := a.activeWallet(ctx, userID)
	if err != nil {
		a.fail(conv, intent.OptionExecuteTransfer, err, t)
		return
	}
	res, err := a.dataActions.SendTransfer(ctx, w, actions.SendTransferParams{To: to, Amount: amount})
	if err != nil {
		a.fail(conv, intent.OptionExecuteTransfer, err, t)
		return
	}
	draft.MarkExecuted()
	conv.lastFailed = ""
	a.state.Invalidate(w.Address())

	t.add(a.reply(KindTransaction,
		"送金トランザクションを送信しました。\nトランザクションハッシュ: "+res.TxHash+"\n承認を待っています。",
		a.selectUI(configs.MenuWallet)))

	a.state.TrackTransaction(ctx, w, w, res.Tx, func(ev state.TxEvent) {
		a.emit(conv, userID, ev, amount, to)
	})
}

// emit reports a tracked transaction outcome into the conversation once.
func (a *WalletAgent) emit(conv *Conversation, userID int, ev state.TxEvent, amount, to string) {
	var msg ChatMessage
	if ev.Status == state.TxConfirmed {
		msg = a.reply(KindTransaction, amount+" ETH を "+to+" に送金しました。(ブロック "+strconv.FormatUint(ev.BlockNumber, 10)+")", a.selectUI(configs.MenuWallet))
	} else {
		msg = a.reply(KindError, "送金に失敗しました: "+actions.Describe(ev.Err), a.selectUI(configs.MenuRetry))
	}
	if conv.Emit(ev.ID, msg) {
		a.persist(context.Background(), conv, userID, []ChatMessage{msg})
	}
}

func (a *WalletAgent) walletSetup(conv *Conversation, userID int, it intent.Intent, t *turn) {
	switch it.Step {
	case intent.SetupCreate, intent.SetupConfirm:
		// Only OptionConfirmCreate on the next turn deploys a wallet.
		msg := orDefault(it.Message, createWarning)
		if it.Step == intent.SetupCreate {
			logging.AppLogger.Info("unconfirmed wallet creation, asking first", zap.Int("user_id", userID))
			msg = createWarning
		}
		conv.awaitingCreate = true
		t.add(a.reply(KindText, msg, a.selectUI(configs.MenuConfirmCreate)))
	case intent.SetupBackup:
		t.add(a.reply(KindText, it.Message, a.uiOr(it.UI, configs.MenuWallet)))
	default:
		t.add(a.reply(KindText, it.Message, a.uiOr(it.UI, configs.MenuExplain)))
	}
}

// createWallet provisions a wallet, adds it to the list and shows the secrets
// once. Only a redacted copy of the security message is kept.
func (a *WalletAgent) createWallet(ctx context.Context, conv *Conversation, userID int, text string, t *turn) {
	if a.provisioner == nil {
		a.fail(conv, text, errors.New("wallet provisioning is not configured"), t)
		return
	}
	var stages []string
	created, err := a.provisioner.Create(ctx, func(stage string) { stages = append(stages, stage) })
	if err != nil {
		logging.AppLogger.Error("wallet creation failed", zap.Strings("stages", stages), zap.Error(err))
		a.fail(conv, text, err, t)
		return
	}
	rec, err := a.wallets.Add(ctx, strconv.Itoa(userID), walletlist.NewWallet{
		Address:         created.Owner,
		ContractAddress: created.ContractAddress,
		PrivateKey:      created.PrivateKey,
	})
	if err != nil {
		a.fail(conv, text, err, t)
		return
	}
	if _, err := a.wallets.SwitchActive(ctx, strconv.Itoa(userID), rec.ID); err != nil {
		logging.AppLogger.Warn("could not activate new wallet", zap.String("id", rec.ID), zap.Error(err))
	}

	header := "ウォレットを作成しました。\n" +
		"コントラクトアドレス: " + created.ContractAddress + "\n" +
		"オーナーアドレス: " + created.Owner + "\n"
	secrets := "\n秘密鍵: " + created.PrivateKey + "\n" +
		"リカバリーフレーズ: " + created.Mnemonic + "\n\n" +
		"この情報は二度と表示されません。必ず安全な場所に保管してください。"
	ui := a.selectUI(configs.MenuBackup)
	shown := a.reply(KindSecurity, header+secrets, ui)
	stored := shown
	stored.Content = header + "\n(秘密鍵とリカバリーフレーズは表示済みのため保存されていません)"
	t.addSecret(shown, stored)
}

func (a *WalletAgent) showHistory(ctx context.Context, conv *Conversation, userID int, t *turn) {
	_, w, err := a.activeWallet(ctx, userID)
	if errors.Is(err, walletlist.ErrNoActiveWallet) {
		t.add(a.noWallet())
		return
	}
	if err != nil {
		a.fail(conv, OptionHistory, err, t)
		return
	}
	activity, err := a.getters.Activity(ctx, w, historyLimit)
	if err != nil {
		a.fail(conv, OptionHistory, err, t)
		return
	}
	if len(activity.Transfers) == 0 {
		t.add(a.reply(KindText, "まだトランザクションはありません。", a.selectUI(configs.MenuWallet)))
		return
	}
	lines := []string{"最近のトランザクション:"}
	for _, tr := range activity.Transfers {
		dir := "受信"
		if strings.EqualFold(tr.From, w.Address()) {
			dir = "送信"
		}
		value := "?"
		if tr.Value != nil {
			value = strconv.FormatFloat(*tr.Value, 'f', -1, 64)
		}
		lines = append(lines, "- "+dir+" "+value+" "+tr.Asset+" ("+tr.Hash+")")
	}
	t.add(a.reply(KindText, strings.Join(lines, "\n"), a.selectUI(configs.MenuWallet)))
}

// fail turns an error into an error-kind message with a retry menu and
// remembers the command for the retry option.
func (a *WalletAgent) fail(conv *Conversation, command string, err error, t *turn) {
	logging.ErrorLogger.Error("wallet command failed", zap.String("command", command), zap.Error(err))
	conv.lastFailed = command
	conv.lastError = err.Error()
	if errors.Is(err, walletlist.ErrNoActiveWallet) {
		t.add(a.noWallet())
		return
	}
	t.add(a.reply(KindError, actions.Describe(err), a.selectUI(configs.MenuRetry)))
}

func (a *WalletAgent) noWallet() ChatMessage {
	return a.reply(KindText, "ウォレットがまだありません。まずウォレットを作成してください。", a.selectUI(configs.MenuNoWallet))
}

func (a *WalletAgent) reply(kind Kind, content string, ui *intent.UI) ChatMessage {
	return newMessage(RoleAssistant, kind, content, ui)
}

func (a *WalletAgent) selectUI(menu string) *intent.UI {
	return &intent.UI{Type: intent.UISelect, Options: a.Config.Menu(menu)}
}

func (a *WalletAgent) uiOr(ui *intent.UI, menu string) *intent.UI {
	if ui != nil {
		return ui
	}
	return a.selectUI(menu)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// persist mirrors messages to chat history; failures are logged only.
func (a *WalletAgent) persist(ctx context.Context, conv *Conversation, userID int, msgs []ChatMessage) {
	if a.history == nil || len(msgs) == 0 {
		return
	}
	rows := make([]models.ChatMessage, len(msgs))
	for i, m := range msgs {
		rows[i] = ToModel(m)
	}
	if err := a.history.SaveMessages(context.WithoutCancel(ctx), conv.ID, userID, rows); err != nil {
		logging.ErrorLogger.Error("chat history save failed", zap.String("session_id", conv.ID), zap.Error(err))
	}
}

// ToModel converts a chat message into its storage row.
func ToModel(m ChatMessage) models.ChatMessage {
	row := models.ChatMessage{
		Role:      string(m.Role),
		Kind:      string(m.Kind),
		Content:   m.Content,
		Timestamp: time.UnixMilli(m.Timestamp),
	}
	if m.UI != nil {
		if b, err := json.Marshal(m.UI); err == nil {
			row.UI = string(b)
		}
	}
	return row
}

// FromModel is the inverse of ToModel.
func FromModel(row models.ChatMessage) ChatMessage {
	m := ChatMessage{
		ID:        row.ID.String(),
		Role:      Role(row.Role),
		Kind:      Kind(row.Kind),
		Content:   row.Content,
		Timestamp: row.Timestamp.UnixMilli(),
	}
	if row.UI != "" {
		var ui intent.UI
		if json.Unmarshal([]byte(row.UI), &ui) == nil {
			m.UI = &ui
		}
	}
	return m
}
