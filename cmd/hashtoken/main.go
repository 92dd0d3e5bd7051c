package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minTokenLength = 8

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "hash":
		if !hashToken() {
			os.Exit(1)
		}
	case "verify":
		if !verifyToken() {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for
// display, replacing anything outside [a-zA-Z0-9_-] with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("PDF Preview Admin Token Management")
	fmt.Println("")
	fmt.Println("Usage: hashtoken <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  hash    - Hash a new admin token for ADMIN_TOKEN_HASH")
	fmt.Println("  verify  - Check a token against the configured hash")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  ADMIN_TOKEN_HASH - bcrypt hash checked by verify")
}

func hashToken() bool {
	fmt.Print("New Token: ")
	token, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}

	fmt.Print("Confirm Token: ")
	confirm, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}

	if !bytes.Equal(token, confirm) {
		fmt.Fprintln(os.Stderr, "Error: Tokens do not match")
		return false
	}

	if len(token) < minTokenLength {
		fmt.Fprintf(os.Stderr, "Error: Token must be at least %d characters\n", minTokenLength)
		return false
	}

	hash, err := bcrypt.GenerateFromPassword(token, bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to hash token: %v\n", err)
		return false
	}

	fmt.Println("Set this in the service environment:")
	fmt.Printf("ADMIN_TOKEN_HASH=%s\n", hash)
	return true
}

func verifyToken() bool {
	hash := os.Getenv("ADMIN_TOKEN_HASH")
	if hash == "" {
		fmt.Fprintln(os.Stderr, "Error: ADMIN_TOKEN_HASH is not set")
		return false
	}

	fmt.Print("Token: ")
	token, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), token); err != nil {
		fmt.Fprintln(os.Stderr, "Token does not match the configured hash")
		return false
	}

	fmt.Println("Token matches.")
	return true
}
