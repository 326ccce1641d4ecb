package jsonutils

import "testing"

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"message":"hi"}`, `{"message":"hi"}`},
		{"fenced", "Sure!\n```json\n{\"message\":\"hi\"}\n```\nbye", `{"message":"hi"}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Here you go: {"a": {"b": 2}} thanks`, `{"a": {"b": 2}}`},
		{"bom and zero width", "\uFEFF{\"a\":\u200B1}", `{"a":1}`},
		{"crlf", "{\r\n\"a\":1\r\n}", "{\n\"a\":1\n}"},
		{"no object", "no json here", "no json here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSON(tc.input); got != tc.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestExtractJSONDoesNotRepairMissingCommas(t *testing.T) {
	in := `{"message":"hi" "action":"UNKNOWN"}`
	if got := ExtractJSON(in); got != in {
		t.Errorf("expected malformed input untouched, got %q", got)
	}
}
