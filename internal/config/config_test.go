package config

import (
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default("/home/x")
	if cfg.Chain.RPC != "https://evm-t3.cronos.org" {
		t.Fatalf("rpc = %s", cfg.Chain.RPC)
	}
	if cfg.Chain.ChainID != 338 {
		t.Fatalf("chain id = %d", cfg.Chain.ChainID)
	}
	if cfg.Payments.CitationRateCRO != 0.01 {
		t.Fatalf("citation rate = %v", cfg.Payments.CitationRateCRO)
	}
	if cfg.Payments.ServiceFeeCRO != 0.05 {
		t.Fatalf("service fee = %v", cfg.Payments.ServiceFeeCRO)
	}
	if cfg.Analytics.Listen != ":8799" {
		t.Fatalf("listen = %s", cfg.Analytics.Listen)
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default("/home/x")
	cfg.Payments.ServiceWallet = "0x52908400098527886E0F7030069857D2E4169EE7"
	cfg.Chain.ChainID = 25

	if err := Write(path, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing config accepted")
	}
}
