package csrf

import (
	"errors"
	"testing"

	"github.com/terralink/portal/internal/auth/domain"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		stored    string
		presented string
		strict    bool
		wantErr   bool
	}{
		{name: "match", stored: "abc123", presented: "abc123"},
		{name: "mismatch", stored: "abc123", presented: "abc124", wantErr: true},
		{name: "absent lenient", stored: "abc123", presented: ""},
		{name: "absent strict", stored: "abc123", presented: "", strict: true, wantErr: true},
		{name: "wrong length", stored: "abc123", presented: "abc", wantErr: true},
		{name: "match strict", stored: "abc123", presented: "abc123", strict: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.stored, tc.presented, tc.strict)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrCSRFMismatch) {
					t.Fatalf("err = %v, want ErrCSRFMismatch", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
