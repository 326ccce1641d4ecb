package intent

import (
	"aiwallet/aiwallet/utils/jsonutils"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Action string

const (
	CheckBalance    Action = "CHECK_BALANCE"
	SendTransaction Action = "SEND_TRANSACTION"
	WalletSetup     Action = "WALLET_SETUP"
	Unknown         Action = "UNKNOWN"
)

// older prompt revisions named the setup phases as separate actions
var actionAliases = map[string]Action{
	"CREATE_WALLET": WalletSetup,
	"SHOW_SECURITY": WalletSetup,
	"BACKUP_WALLET": WalletSetup,
}

type UIType string

const (
	UIInput   UIType = "input"
	UISelect  UIType = "select"
	UIConfirm UIType = "confirm"
)

type UI struct {
	Type    UIType   `json:"type"`
	Options []string `json:"options,omitempty"`
}

type SetupStep string

const (
	SetupExplain SetupStep = "EXPLAIN"
	SetupConfirm SetupStep = "CONFIRM"
	SetupCreate  SetupStep = "CREATE"
	SetupBackup  SetupStep = "BACKUP"
)

type Params struct {
	To     string `json:"to,omitempty"`
	Amount string `json:"amount,omitempty"`
	Step   Step   `json:"step,omitempty"`
}

// Intent is the decoded classifier reply.
type Intent struct {
	Action  Action    `json:"action"`
	Params  *Params   `json:"params,omitempty"`
	Step    SetupStep `json:"step,omitempty"`
	Message string    `json:"message"`
	UI      *UI       `json:"ui,omitempty"`
}

const (
	FallbackMessage   = "申し訳ありません。もう一度質問を言い換えていただけますか?"
	OptionAboutWallet = "ウォレットについて教えて"
	OptionStartOver   = "最初からやり直す"
)

// Fallback is the fixed reply used whenever the classifier output cannot be trusted.
func Fallback() Intent {
	return Intent{
		Action:  Unknown,
		Message: FallbackMessage,
		UI: &UI{
			Type:    UISelect,
			Options: []string{OptionAboutWallet, OptionStartOver},
		},
	}
}

// DecodeError describes why a classifier reply was rejected.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("intent decode: %s: %v", e.Reason, e.Err)
	}
	return "intent decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

type wireParams struct {
	To     string          `json:"to"`
	Amount json.RawMessage `json:"amount"`
	Step   string          `json:"step"`
}

type wireIntent struct {
	Action  *string     `json:"action"`
	Intent  *string     `json:"intent"`
	Params  *wireParams `json:"params"`
	Step    string      `json:"step"`
	Message *string     `json:"message"`
	UI      *UI         `json:"ui"`
}

// Decode turns raw model text into an Intent. Only whitespace, invisible
// characters and a surrounding code fence are tolerated; anything else that
// does not match the closed shape is a *DecodeError.
func Decode(raw string) (Intent, error) {
	body := jsonutils.ExtractJSON(raw)
	if body == "" {
		return Intent{}, &DecodeError{Reason: "no JSON object in reply"}
	}

	var w wireIntent
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return Intent{}, &DecodeError{Reason: "malformed JSON", Err: err}
	}

	if w.Message == nil || strings.TrimSpace(*w.Message) == "" {
		return Intent{}, &DecodeError{Reason: "message missing"}
	}
	out := Intent{Message: *w.Message}

	name := ""
	switch {
	case w.Action != nil:
		name = *w.Action
	case w.Intent != nil:
		name = *w.Intent
	}
	action, err := parseAction(name)
	if err != nil {
		return Intent{}, err
	}
	out.Action = action

	if w.UI != nil {
		switch w.UI.Type {
		case UIInput, UISelect, UIConfirm:
		default:
			return Intent{}, &DecodeError{Reason: fmt.Sprintf("unknown ui type %q", w.UI.Type)}
		}
		out.UI = w.UI
	}

	if w.Params != nil {
		p, err := decodeParams(w.Params)
		if err != nil {
			return Intent{}, err
		}
		out.Params = p
	}

	if w.Step != "" {
		switch action {
		case SendTransaction:
			step, ok := parseStep(w.Step)
			if !ok {
				return Intent{}, &DecodeError{Reason: fmt.Sprintf("unknown transfer step %q", w.Step)}
			}
			if out.Params == nil {
				out.Params = &Params{}
			}
			if out.Params.Step == "" {
				out.Params.Step = step
			}
		default:
			step := SetupStep(strings.ToUpper(w.Step))
			switch step {
			case SetupExplain, SetupConfirm, SetupCreate, SetupBackup:
				out.Step = step
			default:
				return Intent{}, &DecodeError{Reason: fmt.Sprintf("unknown setup step %q", w.Step)}
			}
		}
	}

	return out, nil
}

func parseAction(name string) (Action, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Unknown, nil
	}
	switch a := Action(strings.ToUpper(name)); a {
	case CheckBalance, SendTransaction, WalletSetup, Unknown:
		return a, nil
	}
	if a, ok := actionAliases[strings.ToUpper(name)]; ok {
		return a, nil
	}
	return "", &DecodeError{Reason: fmt.Sprintf("unknown action %q", name)}
}

func decodeParams(w *wireParams) (*Params, error) {
	p := &Params{To: strings.TrimSpace(w.To)}
	if len(w.Amount) > 0 && !bytes.Equal(w.Amount, []byte("null")) {
		amount, err := decodeAmount(w.Amount)
		if err != nil {
			return nil, err
		}
		p.Amount = amount
	}
	if w.Step != "" {
		step, ok := parseStep(w.Step)
		if !ok {
			return nil, &DecodeError{Reason: fmt.Sprintf("unknown transfer step %q", w.Step)}
		}
		p.Step = step
	}
	return p, nil
}

// decodeAmount accepts a JSON string or a bare JSON number and keeps its text.
func decodeAmount(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", &DecodeError{Reason: "amount is neither string nor number", Err: err}
	}
	return n.String(), nil
}
