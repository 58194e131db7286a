package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/surebet/internal/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{"explicit", ClientConfig{DSN: "postgres://x@y/z", Host: "ignored"}, "postgres://x@y/z"},
		{"defaults", ClientConfig{User: "surebet", Password: "pw", Database: "surebet"}, "postgres://surebet:pw@localhost:5432/surebet?sslmode=disable"},
		{"escaped password", ClientConfig{User: "u", Password: "p@ss/word", Host: "db", Port: 6543, Database: "d", SSLMode: "require"}, "postgres://u:p%40ss%2Fword@db:6543/d?sslmode=require"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterSQL(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFilter("recorded_at", domain.ListOpts{Limit: 50, Offset: 100, Since: &since})
	f.where("status", "=", "pending")

	got := f.sql()
	want := " WHERE recorded_at >= $1 AND status = $2 ORDER BY recorded_at DESC LIMIT $3 OFFSET $4"
	if got != want {
		t.Errorf("sql = %q\nwant  %q", got, want)
	}
	if len(f.args) != 4 || f.args[1] != "pending" || f.args[2] != 50 || f.args[3] != 100 {
		t.Errorf("args = %v", f.args)
	}
}

func TestFilterSQLNoConditions(t *testing.T) {
	f := newFilter("created_at", domain.ListOpts{})
	if got := f.sql(); strings.Contains(got, "WHERE") || strings.Contains(got, "LIMIT") {
		t.Errorf("sql = %q", got)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrationsFS.ReadFile("migrations/001_records.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, table := range []string{"arbitrage_records", "audit_log"} {
		if !strings.Contains(string(data), table) {
			t.Errorf("migration does not create %s", table)
		}
	}
}
