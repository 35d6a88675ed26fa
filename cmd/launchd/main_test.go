package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"launchpad/core/runtime"
	"launchpad/crypto"
	"launchpad/storage"
)

func account(fill byte) string {
	return crypto.MustAddress(bytes.Repeat([]byte{fill}, 20)).String()
}

func TestResolveGenesisPathPrecedence(t *testing.T) {
	t.Setenv(genesisPathEnv, "/env/genesis.json")
	if got := resolveGenesisPath(" /flag.json ", "/config.json"); got != "/flag.json" {
		t.Fatalf("flag should win, got %q", got)
	}
	if got := resolveGenesisPath("", "/config.json"); got != "/env/genesis.json" {
		t.Fatalf("env should beat config, got %q", got)
	}
	t.Setenv(genesisPathEnv, "")
	if got := resolveGenesisPath("", "/config.json"); got != "/config.json" {
		t.Fatalf("config fallback expected, got %q", got)
	}
}

func TestApplyGenesisOnlyOnce(t *testing.T) {
	spec := fmt.Sprintf(`{
  "token": {"decimals": 9, "mintAuthority": %q},
  "alloc": {},
  "sale": {
    "authority": %q,
    "allocationCap": "1000",
    "startRate": 10,
    "endRate": 40,
    "minContribution": "1",
    "maxPerWallet": "100",
    "unit": "1",
    "payees": [
      {"address": %q, "percent": 80},
      {"address": %q, "percent": 10},
      {"address": %q, "percent": 10}
    ],
    "poolTokens": "1000"
  }
}`, account(0xA1), account(0xA1), account(0xB1), account(0xB2), account(0xB3))
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(spec), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}

	db := storage.NewMemDB()
	defer db.Close()
	rt, err := runtime.New(runtime.Config{DB: db})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	if err := applyGenesis(ctx, rt, path, logger); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	// A second start must skip the already-seeded ledger rather than fail.
	if err := applyGenesis(ctx, rt, path, logger); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	err = rt.View(ctx, func(e *runtime.Engines) error {
		st, err := e.Bootstrap.State()
		if err != nil {
			return err
		}
		if st.Params.AllocationCap != 1000 {
			return fmt.Errorf("unexpected cap %d", st.Params.AllocationCap)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
}

func TestApplyGenesisWithoutFileLeavesLedgerEmpty(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	rt, err := runtime.New(runtime.Config{DB: db})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := applyGenesis(context.Background(), rt, "", logger); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("expected no writes, got %d keys", db.Len())
	}
}

func TestListenCapsConcurrentConnections(t *testing.T) {
	ln, err := listen("127.0.0.1:0", 1)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	for i := 0; i < 2; i++ {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		defer conn.Close()
	}
	first, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	accepted := make(chan net.Conn, 1)
	go func() {
		if conn, err := ln.Accept(); err == nil {
			accepted <- conn
		}
	}()
	select {
	case <-accepted:
		t.Fatalf("second connection accepted while the first is open")
	case <-time.After(100 * time.Millisecond):
	}

	first.Close()
	select {
	case conn := <-accepted:
		conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatalf("second connection not accepted after the first closed")
	}
}
