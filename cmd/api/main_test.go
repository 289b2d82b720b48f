package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestRunReturnsConfigError(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "not-an-ip")
	err := run(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("run() error = %v, want load config error", err)
	}
}
