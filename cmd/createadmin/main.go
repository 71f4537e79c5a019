// Command createadmin bootstraps the first super_admin account.
//
// The server has no public registration — staff accounts are created by
// the super_admin, and the super_admin itself is created here, once,
// from the machine that holds the database file. The command refuses to
// run when a super_admin already exists, and a unique index in the
// schema backs that check up against concurrent invocations.
//
// Usage:
//
//	createadmin -db data/chatqa.db -username boss -email boss@example.com -name "Head Admin"
//
// The password is read interactively with echo disabled; it never
// appears in argv or shell history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/phm-oh/chatqa-backend/internal/auth"
	"github.com/phm-oh/chatqa-backend/internal/repository/sqlite"
	"github.com/phm-oh/chatqa-backend/internal/service"
)

func main() {
	dbPath := flag.String("db", "data/chatqa.db", "path to the SQLite database")
	username := flag.String("username", "", "super admin username")
	email := flag.String("email", "", "super admin email")
	fullName := flag.String("name", "", "super admin full name")
	flag.Parse()

	if *username == "" || *email == "" || *fullName == "" {
		fmt.Fprintln(os.Stderr, "usage: createadmin -db <path> -username <name> -email <addr> -name <full name>")
		os.Exit(2)
	}

	password, err := promptPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error opening database:", err)
		os.Exit(1)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	tokens, err := auth.NewTokenService(strings.Repeat("x", 32), time.Hour) // never used for issuing here
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	svc := service.NewAuthService(db.Admins(), tokens, auth.NewPasswordService(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := svc.BootstrapSuperAdmin(ctx, service.RegisterInput{
		Username: *username,
		Email:    *email,
		Password: password,
		FullName: *fullName,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Printf("super admin created: %s (%s)\n", admin.Username, admin.ID)
}

// promptPassword reads the password twice with terminal echo off.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
