// Dev helper: generates secret key or signs an access token with it
//
//	gensecret                                   # random secret key
//	gensecret -s <key> --user <uuid> [--admin]  # access token for the user
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/ledgerbank/internal/service/auth/tokenmanager"
)

const SecretKeyBytesLen = 32

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gensecret: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)
	secretKey := fs.StringP("secret-key", "s", "", "Secret key to sign token with, random key is printed if empty")
	userID := fs.StringP("user", "u", "", "User id to issue token for, random if empty")
	admin := fs.Bool("admin", false, "Issue admin token")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *secretKey == "" {
		key, err := newSecretKey()
		if err != nil {
			return fmt.Errorf("error while generating secret key: %w", err)
		}
		_, err = fmt.Fprintln(out, key)
		return err
	}

	id := uuid.New()
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		id = parsed
	}

	manager, err := tokenmanager.New(tokenmanager.Config{SecretKey: *secretKey, AccessTTL: *ttl})
	if err != nil {
		return err
	}
	token, expiresAt, err := manager.Issue(tokenmanager.Identity{UserID: id, IsAdmin: *admin})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "user:    %s\nadmin:   %t\nexpires: %s\ntoken:   %s\n", id, *admin, expiresAt.Format(time.RFC3339), token)
	return err
}

func newSecretKey() (string, error) {
	b := make([]byte, SecretKeyBytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
