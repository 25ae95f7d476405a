// Package main provides the invoicefill command line host. It loads the
// configuration, starts the shared browser engine, runs one fill request
// through the automation gateway, and prints the structured result.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/entrhq/invoicefill/pkg/automation"
	"github.com/entrhq/invoicefill/pkg/browser"
	"github.com/entrhq/invoicefill/pkg/config"
	"github.com/entrhq/invoicefill/pkg/invoice"
)

const version = "0.1.0"

// errFillFailed signals a completed run whose fill attempt failed; the
// process exits non-zero without the usual error banner.
var errFillFailed = errors.New("fill attempt failed")

type options struct {
	dataDir       string
	systemID      string
	invoicePath   string
	setCredential string
	listSystems   bool
	showVersion   bool
}

func main() {
	// Optional .env for INVOICEFILL_DATA_DIR and friends.
	_ = godotenv.Load()

	opts := parseFlags()
	if opts.showVersion {
		fmt.Printf("invoicefill v%s\n", version)
		return
	}

	if err := run(opts); err != nil {
		if errors.Is(err, errFillFailed) {
			os.Exit(1)
		}
		log.Fatalf("invoicefill: %v", err)
	}
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.dataDir, "data-dir", "", "application data directory (default ~/.invoicefill)")
	flag.StringVar(&opts.systemID, "system", "", "target-system identifier (e.g. erp_sap)")
	flag.StringVar(&opts.invoicePath, "invoice", "", "path to a JSON file with the normalized invoice")
	flag.StringVar(&opts.setCredential, "set-credential", "", "store a credential as user:password for -system and exit")
	flag.BoolVar(&opts.listSystems, "list-systems", false, "print the configured target systems and exit")
	flag.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return opts
}

func run(opts *options) error {
	dataDir := opts.dataDir
	if dataDir == "" {
		var err error
		dataDir, err = config.DefaultDataDir()
		if err != nil {
			return err
		}
	}

	store, err := config.NewStore(dataDir)
	if err != nil {
		return err
	}

	if opts.listSystems {
		for _, system := range store.Systems() {
			fmt.Printf("%s\t%s\t%s\t%s\n", system.ID, system.Category, system.LoginProtocol, system.Name)
		}
		return nil
	}

	if opts.systemID == "" {
		return fmt.Errorf("-system is required")
	}

	if opts.setCredential != "" {
		username, password, found := strings.Cut(opts.setCredential, ":")
		if !found || username == "" || password == "" {
			return fmt.Errorf("-set-credential expects user:password")
		}
		if err := store.SetCredential(opts.systemID, username, password); err != nil {
			return err
		}
		fmt.Printf("credential stored for %s\n", opts.systemID)
		return nil
	}

	if opts.invoicePath == "" {
		return fmt.Errorf("-invoice is required")
	}
	inv, err := loadInvoice(opts.invoicePath)
	if err != nil {
		return err
	}

	pool := browser.NewContextPool(dataDir)
	if err := pool.Start(); err != nil {
		return err
	}
	defer func() {
		if err := pool.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	// Persist sessions even when the fill is interrupted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		_ = pool.Shutdown()
		os.Exit(1)
	}()

	login := automation.NewLoginManager(pool, store, store.Systems())
	evidence := automation.NewEvidence(filepath.Join(dataDir, "screenshots"))
	gateway := automation.NewGateway(login, evidence, store.Systems())

	result := gateway.FillInvoice(opts.systemID, inv)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Success {
		return errFillFailed
	}
	return nil
}

func loadInvoice(path string) (*invoice.Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice file: %w", err)
	}
	var inv invoice.Field
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse invoice file: %w", err)
	}
	return &inv, nil
}
