package main

import (
	"context"
	"testing"

	"sitelog/internal/logging"
	"sitelog/internal/store"
	"sitelog/internal/testsupport"
)

func TestBuildDaemonWiresPipeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	d, err := buildDaemon(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("buildDaemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running")
	}
	if d.APIAddr() == "" {
		t.Fatal("expected API address after start")
	}
	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to stop")
	}
}

func TestBuildDaemonRejectsStorageMisconfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Enabled = true
	cfg.Storage.Endpoint = "://bad endpoint"
	cfg.Storage.Bucket = "media"
	cfg.Storage.AccessKey = "key"
	cfg.Storage.SecretKey = "secret"

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if _, err := buildDaemon(cfg, st, logging.NewNop()); err == nil {
		t.Fatal("expected error for invalid storage endpoint")
	}
}
