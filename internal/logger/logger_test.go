package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_RedactsSecrets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("login", "actor", "u1", "access_token", "abc", "header", "eyJhbGciOiJIUzI1.eyJzdWIiOiJ1MSJ9.sig")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["actor"] != "u1" {
		t.Errorf("actor should pass through, got %v", fields["actor"])
	}
	if fields["access_token"] != "[REDACTED]" {
		t.Errorf("token not redacted: %v", fields["access_token"])
	}
	if fields["header"] != "[REDACTED]" {
		t.Errorf("jwt-looking value not redacted: %v", fields["header"])
	}
}

func TestLogger_OddKeyValues(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Errorf("unexpected %v", out)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("ignored", "k", "v")
	l.With("k", "v").Warn("ignored")
	l.Sync()
}
