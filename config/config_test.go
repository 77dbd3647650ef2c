package config_test

import (
	"testing"

	"github.com/mickamy/kvstored/config"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != 6380 {
		t.Fatalf("got port %d, want 6380", cfg.Port)
	}
	if cfg.Dir != "." {
		t.Fatalf("got dir %q, want .", cfg.Dir)
	}
	if cfg.DBFilename != "dump.rdb" {
		t.Fatalf("got dbfilename %q, want dump.rdb", cfg.DBFilename)
	}
	if cfg.IsReplica() {
		t.Fatal("got IsReplica() true with no --replicaof")
	}
}

func TestParseReplicaOf(t *testing.T) {
	cfg, err := config.Parse([]string{"--replicaof", "127.0.0.1 6380", "--port", "6381"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.IsReplica() {
		t.Fatal("got IsReplica() false with --replicaof set")
	}
	if cfg.ReplicaOf != "127.0.0.1 6380" {
		t.Fatalf("got replicaof %q", cfg.ReplicaOf)
	}
	if cfg.Port != 6381 {
		t.Fatalf("got port %d, want 6381", cfg.Port)
	}
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	if _, err := config.Parse([]string{"--bogus"}); err == nil {
		t.Fatal("got nil error for unknown flag")
	}
}
