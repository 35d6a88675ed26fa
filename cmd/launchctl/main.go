package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"launchpad/cmd/internal/secret"
	"launchpad/config"
	"launchpad/crypto"
	"launchpad/services/launchapi"
	"launchpad/services/manifest"
)

const (
	tokenCommand   = "token"
	enqueueCommand = "enqueue"
	keygenCommand  = "keygen"

	defaultConfig    = "./config.toml"
	defaultSecretEnv = "LAUNCHPAD_API_SECRET"
	defaultAPI       = "http://localhost:8088"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case tokenCommand:
		err = runToken(os.Args[2:], os.Stdout)
	case enqueueCommand:
		err = runEnqueue(os.Args[2:], os.Stdout)
	case keygenCommand:
		err = runKeygen(os.Stdout)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(tokenCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the launchd config file")
	subject := fs.String("subject", "", "Account the token acts as")
	ttl := fs.Duration("ttl", 0, "Token lifetime (defaults to the configured TokenTTL)")
	secretEnv := fs.String("secret-env", defaultSecretEnv, "Environment variable holding the signing secret")
	fs.Parse(args)

	addr, err := crypto.ParseAddress(strings.TrimSpace(*subject))
	if err != nil {
		return fmt.Errorf("invalid --subject: %w", err)
	}
	cfg := config.Default()
	if _, statErr := os.Stat(*configPath); statErr == nil {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	src := secret.NewSource(*secretEnv, cfg.HMACSecret)
	key, err := src.Get()
	if err != nil {
		return err
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.Auth.TokenTTL.Duration
	}
	token, err := launchapi.IssueToken(key, cfg.Auth.Issuer, cfg.Auth.Audience, addr, lifetime, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func runEnqueue(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(enqueueCommand, flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "YAML manifest of distributions to queue")
	api := fs.String("api", defaultAPI, "Base URL of the launchd API")
	token := fs.String("token", os.Getenv("LAUNCHPAD_TOKEN"), "Bearer token of a dispenser operator")
	dryRun := fs.Bool("dry-run", false, "Validate the manifest without submitting it")
	fs.Parse(args)

	if strings.TrimSpace(*manifestPath) == "" {
		return fmt.Errorf("--manifest is required")
	}
	raw, err := os.ReadFile(*manifestPath)
	if err != nil {
		return err
	}
	doc, err := manifest.Parse(raw)
	if err != nil {
		return err
	}
	items, err := doc.Items()
	if err != nil {
		return err
	}
	total, err := manifest.Total(items)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "manifest %q: %d distributions totalling %d\n", doc.Batch, len(items), total)
	if *dryRun {
		return nil
	}
	if strings.TrimSpace(*token) == "" {
		return fmt.Errorf("--token or LAUNCHPAD_TOKEN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	endpoint := strings.TrimRight(*api, "/") + "/v1/distributions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/yaml")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(*token))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit manifest: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("submit manifest: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	fmt.Fprintln(out, strings.TrimSpace(string(body)))
	return nil
}

func runKeygen(out io.Writer) error {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "address:     %s\nprivate key: %s\n", key.Address(), hex.EncodeToString(key.Bytes()))
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: launchctl <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  %s    Issue an API bearer token for an account\n", tokenCommand)
	fmt.Fprintf(os.Stderr, "  %s  Validate and submit a distribution manifest\n", enqueueCommand)
	fmt.Fprintf(os.Stderr, "  %s   Generate a new account key\n", keygenCommand)
}
