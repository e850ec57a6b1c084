// Command teamsnap-auth runs the interactive out-of-band authorization
// flow: it prints the authorization URL, waits for the user to paste
// the code TeamSnap displays, exchanges it for tokens and persists
// them to the credentials file for the other commands to use.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alexjbarnes/teamsnap-mcp/internal/auth"
	"github.com/alexjbarnes/teamsnap-mcp/internal/config"
	"github.com/alexjbarnes/teamsnap-mcp/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Environment)

	store := auth.NewFileStore(cfg.CredentialsFile)

	creds, err := store.Credentials()
	if err != nil {
		return fmt.Errorf("loading credentials from %s: %w", cfg.CredentialsFile, err)
	}

	authorizer := auth.New(creds, store, cfg.Scope, logger)

	authURL := authorizer.BeginAuthorization()

	fmt.Println("TeamSnap authorization (out-of-band)")
	fmt.Println()
	fmt.Println("1. Open this URL in your browser:")
	fmt.Println()
	fmt.Println("   " + authURL)
	fmt.Println()
	fmt.Println("2. Authorize the application. TeamSnap will display an")
	fmt.Println("   authorization code.")
	fmt.Println("3. Paste the code below.")
	fmt.Println()
	fmt.Print("Authorization code: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return fmt.Errorf("no authorization code provided")
	}

	code := strings.TrimSpace(scanner.Text())

	if err := authorizer.CompleteAuthorization(context.Background(), code); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Authorization complete. Token saved to %s\n", cfg.CredentialsFile)

	return nil
}
