package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Session.Driver != "memory" || cfg.Database.Driver != "memory" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Reputation.Timeout != 3*time.Second {
		t.Fatalf("timeout = %s", cfg.Reputation.Timeout)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: 9090
  apiKeys:
    extension: secret
reputation:
  timeout: 1500ms
  blocklist: ["bad.example"]
session:
  driver: redis
  redis:
    addr: redis:6379
    ttl: 1h
database:
  driver: postgres
  host: db
  port: 5432
  user: sentry
  name: reports
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DB_PASSWORD", "p'w")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.APIKeys["extension"] != "secret" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Reputation.Timeout != 1500*time.Millisecond || len(cfg.Reputation.Blocklist) != 1 {
		t.Fatalf("reputation = %+v", cfg.Reputation)
	}
	if cfg.Session.Redis.TTL != time.Hour || cfg.Session.Redis.Addr != "redis:6379" {
		t.Fatalf("session = %+v", cfg.Session)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
	dsn := cfg.PostgresDSN()
	if !strings.Contains(dsn, "host=db") || !strings.Contains(dsn, `password='p\'w'`) || !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("dsn = %s", dsn)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("session:\n  driver: etcd\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "etcd") {
		t.Fatalf("err = %v", err)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.User, cfg.Database.Password = "u", "p"
	cfg.Database.Host, cfg.Database.Port, cfg.Database.Name = "h", 3306, "n"
	if got := cfg.MySQLDSN(); !strings.HasPrefix(got, "u:p@tcp(h:3306)/n?") || !strings.Contains(got, "clientFoundRows=true") {
		t.Fatalf("dsn = %s", got)
	}
}
