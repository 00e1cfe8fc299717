package database

import (
	"testing"

	"monbudget/internal/config"
)

func TestConfigDSN(t *testing.T) {
	pg := NewConfig(config.DatabaseConfig{
		Driver: DriverPostgres, Host: "db", Port: "5432", User: "app", Password: "secret", Name: "budget", SSLMode: "disable",
	})
	want := "host=db port=5432 user=app password=secret dbname=budget sslmode=disable"
	if got := pg.DSN(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := pg.MigrateURL(); got != "postgres://app:secret@db:5432/budget?sslmode=disable" {
		t.Errorf("unexpected migrate url %q", got)
	}

	lite := NewConfig(config.DatabaseConfig{Driver: DriverSQLite, Path: "file:local.db"})
	if got := lite.DSN(); got != "file:local.db" {
		t.Errorf("expected sqlite path as DSN, got %q", got)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		if _, err := NewManager(&Config{Driver: "oracle"}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("sqlite migrates from models", func(t *testing.T) {
		m, err := NewManager(&Config{Driver: DriverSQLite, Path: "file:managertest?mode=memory&cache=shared"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer m.Close()

		if err := m.RunMigrations(); err != nil {
			t.Fatalf("unexpected migration error: %v", err)
		}
		if err := m.Ping(); err != nil {
			t.Fatalf("unexpected ping error: %v", err)
		}
		if !m.DB().Migrator().HasTable("recurrences") {
			t.Error("expected recurrences table")
		}
	})
}
