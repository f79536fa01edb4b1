package audit

import "testing"

func TestSanitiseKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"secret set", "LLM_API_KEY", "sk-123", "set"},
		{"secret unset", "LLM_API_KEY", "", "unset"},
		{"database url redacted", "DATABASE_URL", "postgres://u:p@h/db", "set"},
		{"plain value passes through", "EMBEDDING_MODEL", "text-embedding-3-large", "text-embedding-3-large"},
		{"plain empty", "EMBEDDING_MODEL", "", "unset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitiseKey(tt.key, tt.value); got != tt.want {
				t.Errorf("SanitiseKey(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
			}
		})
	}
}

func TestSanitiseConfigPathEmpty(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("sanitiseConfigPath(\"\") = %q, want \"none\"", got)
	}
}
