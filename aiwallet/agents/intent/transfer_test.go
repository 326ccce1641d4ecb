package intent

import (
	"errors"
	"testing"
)

const goodAddr = "0x1234567890abcdef1234567890ABCDEF12345678"

func TestDraftProgression(t *testing.T) {
	d := NewTransferDraft()
	if d.Step != "" || d.Active() {
		t.Fatalf("new draft should be idle, got %+v", d)
	}
	if got := d.Merge(nil); got != StepInputAddress {
		t.Errorf("expected input_address, got %s", got)
	}
	if got := d.Merge(&Params{To: goodAddr}); got != StepInputAmount {
		t.Errorf("expected input_amount, got %s", got)
	}
	// a later turn without the address keeps the earlier one
	if got := d.Merge(&Params{Amount: "0.1"}); got != StepConfirm {
		t.Errorf("expected confirm, got %s", got)
	}
	if d.To != goodAddr || d.Amount != "0.1" {
		t.Errorf("fields lost: %+v", d)
	}
	to, amount, err := d.Confirm()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if to != goodAddr || amount != "0.1" {
		t.Errorf("unexpected order %s %s", to, amount)
	}
	d.MarkExecuted()
	if d.Active() {
		t.Error("executed draft should not be active")
	}
}

func TestDraftAllAtOnce(t *testing.T) {
	d := NewTransferDraft()
	if got := d.Merge(&Params{To: goodAddr, Amount: "1"}); got != StepConfirm {
		t.Errorf("expected confirm, got %s", got)
	}
}

func TestConfirmRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name        string
		to, amount  string
		wantAddrErr bool
		wantAmtErr  bool
	}{
		{"short address", "0xabc", "0.1", true, false},
		{"no prefix", "1234567890abcdef1234567890abcdef12345678", "0.1", true, false},
		{"non hex", "0x1234567890abcdef1234567890abcdef1234567g", "0.1", true, false},
		{"word amount", goodAddr, "ten", false, true},
		{"zero amount", goodAddr, "0", false, true},
		{"negative amount", goodAddr, "-1", false, true},
		{"both bad", "bob", "1e3", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewTransferDraft()
			d.Merge(&Params{To: tt.to, Amount: tt.amount})
			if d.Step != StepConfirm {
				t.Fatalf("expected confirm before validation, got %s", d.Step)
			}
			_, _, err := d.Confirm()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if errors.Is(err, ErrInvalidAddress) != tt.wantAddrErr {
				t.Errorf("address error mismatch: %v", err)
			}
			if errors.Is(err, ErrInvalidAmount) != tt.wantAmtErr {
				t.Errorf("amount error mismatch: %v", err)
			}
			if d.Step != StepConfirm {
				t.Errorf("draft should stay at confirm, got %s", d.Step)
			}
			if tt.wantAddrErr && d.To != "" {
				t.Errorf("bad address should be cleared")
			}
			if !tt.wantAddrErr && d.To != tt.to {
				t.Errorf("good address should be kept")
			}
			if tt.wantAmtErr && d.Amount != "" {
				t.Errorf("bad amount should be cleared")
			}
		})
	}
}

func TestCorrectionAfterRejection(t *testing.T) {
	d := NewTransferDraft()
	d.Merge(&Params{To: "0xabc", Amount: "0.1"})
	if _, _, err := d.Confirm(); err == nil {
		t.Fatal("expected rejection")
	}
	if got := d.Merge(&Params{To: goodAddr}); got != StepConfirm {
		t.Errorf("expected to stay at confirm, got %s", got)
	}
	if _, _, err := d.Confirm(); err != nil {
		t.Errorf("corrected draft should confirm: %v", err)
	}
}

func TestConfirmOutsideConfirmStep(t *testing.T) {
	d := NewTransferDraft()
	d.Merge(&Params{To: goodAddr})
	if _, _, err := d.Confirm(); !errors.Is(err, ErrNotConfirmable) {
		t.Errorf("expected ErrNotConfirmable, got %v", err)
	}
}

func TestCancelEndsDraft(t *testing.T) {
	d := NewTransferDraft()
	d.Merge(&Params{To: goodAddr, Amount: "0.1"})
	d.Cancel()
	if d.Active() {
		t.Error("cancelled draft should not be active")
	}
	// a new transfer after cancel starts fresh
	d.Merge(&Params{Amount: "2"})
	if d.To != "" || d.Step != StepInputAddress {
		t.Errorf("expected fresh draft, got %+v", d)
	}
}

func TestOptionRecognition(t *testing.T) {
	if !IsConfirmOption(" 送金を実行する ") || IsConfirmOption("送金") {
		t.Error("confirm option recognition wrong")
	}
	if !IsCancelOption("キャンセル") || IsCancelOption("キャンセルしない") {
		t.Error("cancel option recognition wrong")
	}
}
