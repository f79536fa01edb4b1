package store

import (
	"context"
	"testing"
)

func TestFormatVector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		vec  []float32
		want string
	}{
		{"empty", nil, "[]"},
		{"single", []float32{0.5}, "[0.5]"},
		{"several", []float32{0.1, -0.25, 3}, "[0.1,-0.25,3]"},
		{"zero vector", []float32{0, 0}, "[0,0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatVector(tt.vec); got != tt.want {
				t.Errorf("formatVector(%v) = %q, want %q", tt.vec, got, tt.want)
			}
		})
	}
}

func TestNullable(t *testing.T) {
	t.Parallel()

	if got := nullable(""); got != nil {
		t.Errorf("nullable(\"\") = %v, want nil", got)
	}
	if got := nullable("G.R. No. 1"); got == nil || *got != "G.R. No. 1" {
		t.Errorf("nullable(non-empty) = %v", got)
	}
}

func TestNewValidatesInputs(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), "", 1536); err == nil {
		t.Error("want error for empty database URL")
	}
	if _, err := New(context.Background(), "postgres://localhost/x", 0); err == nil {
		t.Error("want error for non-positive dimension")
	}
}
