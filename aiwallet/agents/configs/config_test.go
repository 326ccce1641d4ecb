package configs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg := LoadConfig("")
	if cfg.ClassifierSystem == "" {
		t.Fatal("classifier prompt missing")
	}
	initial := cfg.Menu(MenuInitial)
	if len(initial) != 2 || initial[0] != "ウォレットについて教えて" || initial[1] != "ウォレットを作成したい" {
		t.Errorf("unexpected initial menu %v", initial)
	}
	if got := cfg.Menu(MenuConfirmTransfer); len(got) != 2 || got[0] != "送金を実行する" {
		t.Errorf("unexpected confirm menu %v", got)
	}
}

func TestMenuReturnsCopy(t *testing.T) {
	cfg := LoadConfig("")
	m := cfg.Menu(MenuWallet)
	m[0] = "changed"
	if cfg.Menu(MenuWallet)[0] == "changed" {
		t.Error("menu slice shared with caller")
	}
}

func TestOverrideKeepsUnsetKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	content := "agent_name: Custom\nmenus:\n  retry:\n    - reset\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := LoadConfig(path)
	if cfg.AgentName != "Custom" {
		t.Errorf("expected override name, got %q", cfg.AgentName)
	}
	if got := cfg.Menu(MenuRetry); len(got) != 1 || got[0] != "reset" {
		t.Errorf("expected overridden retry menu, got %v", got)
	}
	if len(cfg.Menu(MenuInitial)) != 2 {
		t.Error("initial menu should survive the override")
	}
	if cfg.ClassifierSystem == "" {
		t.Error("system prompt should survive the override")
	}
}

func TestMissingOverrideFallsBack(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg.AgentName != "AIウォレットアシスタント" {
		t.Errorf("expected embedded defaults, got %q", cfg.AgentName)
	}
}

func TestRenderUser(t *testing.T) {
	cfg := LoadConfig("")
	type draft struct{ To, Amount, Step string }
	out, err := cfg.RenderUser(struct {
		HasWallet bool
		Address   string
		Balance   string
		Locked    bool
		Draft     draft
		LastError string
		Command   string
	}{
		HasWallet: true,
		Address:   "0xabc",
		Balance:   "0.5",
		Draft:     draft{To: "0xdef", Step: "input_amount"},
		Command:   "0.1 ETH送って",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"0xabc", "0.5 ETH", "宛先=0xdef", "金額=未入力", "input_amount", "\"0.1 ETH送って\""} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q:\n%s", want, out)
		}
	}
}
