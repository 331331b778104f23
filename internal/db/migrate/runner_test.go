package migrate

import (
	"errors"
	"os"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		err := Run(dsn, "up")
		if err == nil {
			t.Fatalf("Run with DSN %q should return error", dsn)
		}
		if err.Error() != "DATABASE_URL is not set" {
			t.Errorf("error message = %q, want %q", err.Error(), "DATABASE_URL is not set")
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	testCases := []string{"", "invalid", "sideways", "UP"}
	for _, direction := range testCases {
		t.Run(direction, func(t *testing.T) {
			err := Run("postgres://localhost/test", direction)
			if err == nil {
				t.Fatalf("Run with direction %q should return error", direction)
			}
			want := `direction must be up or down, got "` + direction + `"`
			if err.Error() != want {
				t.Errorf("error = %q, want %q", err.Error(), want)
			}
		})
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	testCases := []struct {
		name string
		dsn  string
	}{
		{"invalid format", "invalid-dsn"},
		{"missing driver", "://localhost/test"},
		{"spaces", "postgres://localhost with spaces/test"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Run(tc.dsn, "up")
			if err == nil {
				t.Fatalf("Run with invalid DSN %q should return error", tc.dsn)
			}
			if errors.Is(err, ErrNoChange) {
				t.Error("Run should never surface ErrNoChange")
			}
		})
	}
}

func TestVersion_EmptyDSN(t *testing.T) {
	if _, _, err := Version(""); err == nil {
		t.Fatal("Version with empty DSN should return error")
	}
}

func TestRun_UpIsIdempotent(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	if err := Run(dsn, "up"); err != nil {
		t.Fatalf("first up: %v", err)
	}
	if err := Run(dsn, "up"); err != nil {
		t.Fatalf("second up should be a no-op: %v", err)
	}
	v, dirty, err := Version(dsn)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 1 || dirty {
		t.Errorf("Version = %d dirty=%v, want 1 clean", v, dirty)
	}
}
