//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "psi.yaml")
	data := `set-size: 8
eps-bin: 0.25
bin-scaler: 4
tls: true
`
	if err := os.WriteFile(file, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	// The environment overrides the file.
	t.Setenv("OTPSI_SET_SIZE", "16")

	v, err := readConfig(file)
	if err != nil {
		t.Fatalf("readConfig: %v", err)
	}
	config := psiConfig(v)
	if config.SetSize != 16 {
		t.Errorf("set size: got %d, expected 16", config.SetSize)
	}
	if config.EpsBin != 0.25 || config.BinScaler != 4 {
		t.Errorf("binning: got %v/%v", config.EpsBin, config.BinScaler)
	}
	if !config.TLS {
		t.Errorf("TLS not set")
	}
}

func TestReadConfigMissing(t *testing.T) {
	_, err := readConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("readConfig succeeded on a missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("unexpected error: %v", err)
	}
}
