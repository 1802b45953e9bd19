package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tokenFile := filepath.Join(dir, "token")
	if err := os.WriteFile(tokenFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}

	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty: %v", err)
	}

	t.Setenv("WINGMAN_TEST_SECRET", " from-env ")

	cases := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{File: tokenFile, Env: "WINGMAN_TEST_SECRET", Value: "inline"}, want: "from-file"},
		{name: "env before value", src: Source{Env: "WINGMAN_TEST_SECRET", Value: "inline"}, want: "from-env"},
		{name: "unset env falls through", src: Source{Env: "WINGMAN_TEST_UNSET", Value: " inline "}, want: "inline"},
		{name: "empty file", src: Source{Name: "service credential", File: emptyFile}, wantErr: "service credential file"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "absent")}, wantErr: "reading secret"},
		{name: "not configured", src: Source{Name: "gemini api key"}, wantErr: "gemini api key is not configured"},
		{name: "optional", src: Source{Name: "service credential", Optional: true}, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Load(tc.src)

			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
