package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsSQLiteConflictError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy message", errors.New("exec: SQLITE_BUSY"), true},
		{"locked message", fmt.Errorf("upsert kv: %w", errors.New("database is locked (5)")), true},
		{"other", errors.New("no such table: kv"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSQLiteConflictError(tt.err); got != tt.want {
				t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	ran := false
	Guard(nil, "test", func() {
		ran = true
		panic("boom")
	})
	if !ran {
		t.Fatal("expected fn to run")
	}
}
