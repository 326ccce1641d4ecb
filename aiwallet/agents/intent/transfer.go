package intent

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Step is the position of a transfer draft in the conversation.
type Step string

const (
	StepNoAddress    Step = "no_address"
	StepInputAddress Step = "input_address"
	StepInputAmount  Step = "input_amount"
	StepConfirm      Step = "confirm"
	StepExecuted     Step = "executed"
	StepCancelled    Step = "cancelled"
)

const (
	OptionExecuteTransfer = "送金を実行する"
	OptionCancel          = "キャンセル"
)

var (
	ErrInvalidAddress = errors.New("invalid recipient address")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNotConfirmable = errors.New("transfer is not at the confirm step")
)

var (
	reAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	reAmount  = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

func parseStep(s string) (Step, bool) {
	switch st := Step(strings.ToLower(strings.TrimSpace(s))); st {
	case StepNoAddress, StepInputAddress, StepInputAmount, StepConfirm, StepExecuted, StepCancelled:
		return st, true
	}
	return "", false
}

// ValidAddress reports whether s is 0x followed by 40 hex characters.
func ValidAddress(s string) bool { return reAddress.MatchString(s) }

// ValidAmount reports whether s is a positive decimal number string.
func ValidAmount(s string) bool {
	if !reAmount.MatchString(s) {
		return false
	}
	r, ok := new(big.Rat).SetString(s)
	return ok && r.Sign() > 0
}

// TransferDraft accumulates the recipient and amount across turns.
// Nothing is validated until Confirm.
type TransferDraft struct {
	To     string `json:"to,omitempty"`
	Amount string `json:"amount,omitempty"`
	Step   Step   `json:"step,omitempty"`
}

// NewTransferDraft returns an idle draft. The first Merge starts a transfer.
func NewTransferDraft() *TransferDraft {
	return &TransferDraft{}
}

// Active reports whether the draft is still collecting input or awaiting confirmation.
func (d *TransferDraft) Active() bool {
	switch d.Step {
	case "", StepExecuted, StepCancelled:
		return false
	}
	return true
}

// Merge copies the non-empty params into the draft and advances it.
// A draft already at confirm stays there; corrections replace fields in place.
func (d *TransferDraft) Merge(p *Params) Step {
	if !d.Active() {
		*d = TransferDraft{Step: StepNoAddress}
	}
	if p != nil {
		if p.To != "" {
			d.To = p.To
		}
		if p.Amount != "" {
			d.Amount = p.Amount
		}
	}
	if d.Step == StepConfirm {
		return d.Step
	}
	return d.advance()
}

// advance derives the step from what has been filled so far.
func (d *TransferDraft) advance() Step {
	switch {
	case d.To == "":
		d.Step = StepInputAddress
	case d.Amount == "":
		d.Step = StepInputAmount
	default:
		d.Step = StepConfirm
	}
	return d.Step
}

// ValidationError lists the fields rejected at confirmation.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error { return e.Errs }

// Confirm validates the draft. On failure the offending fields are cleared
// and the draft stays at the confirm step so the user can correct them.
func (d *TransferDraft) Confirm() (to, amount string, err error) {
	if d.Step != StepConfirm {
		return "", "", ErrNotConfirmable
	}
	var errs []error
	if !ValidAddress(d.To) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidAddress, d.To))
		d.To = ""
	}
	if !ValidAmount(d.Amount) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidAmount, d.Amount))
		d.Amount = ""
	}
	if len(errs) > 0 {
		return "", "", &ValidationError{Errs: errs}
	}
	return d.To, d.Amount, nil
}

// Missing names the first empty field, or "" when both are filled.
func (d *TransferDraft) Missing() string {
	switch {
	case d.To == "":
		return "to"
	case d.Amount == "":
		return "amount"
	}
	return ""
}

func (d *TransferDraft) MarkExecuted() { d.Step = StepExecuted }

func (d *TransferDraft) Cancel() { d.Step = StepCancelled }

// IsConfirmOption and IsCancelOption recognize the confirm UI buttons.
func IsConfirmOption(text string) bool {
	return strings.TrimSpace(text) == OptionExecuteTransfer
}

func IsCancelOption(text string) bool {
	return strings.TrimSpace(text) == OptionCancel
}
