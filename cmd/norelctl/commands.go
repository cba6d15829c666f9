package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"norel-backend/internal/kiosk"
	"norel-backend/internal/repository"
	"norel-backend/internal/share"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	bcryptCost    int
	decodeTTL     time.Duration
	decodeSkew    time.Duration
	templatesFile string
	databaseURL   string
)

// hashPasswordCmd prints a bcrypt hash for ADMIN_PASSWORD_HASH
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Hash the admin password",
	Long: `Hash a password with bcrypt for the ADMIN_PASSWORD_HASH variable.

The password is read from the first argument, or from stdin when no
argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

// decodeCmd validates a share code offline
var decodeCmd = &cobra.Command{
	Use:   "decode <token-or-url>",
	Short: "Decode and validate a share code",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

// templatesCmd lists kiosk templates
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the kiosk form templates",
	RunE:  runTemplates,
}

// migrateCmd applies the embedded schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema to PostgreSQL",
	RunE:  runMigrate,
}

func init() {
	hashPasswordCmd.Flags().IntVar(&bcryptCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	decodeCmd.Flags().DurationVar(&decodeTTL, "ttl", share.DefaultTTL, "share code validity window")
	decodeCmd.Flags().DurationVar(&decodeSkew, "clock-skew", share.DefaultClockSkew, "tolerated future issuedAt")
	templatesCmd.Flags().StringVar(&templatesFile, "file", os.Getenv("TEMPLATES_FILE"), "YAML templates file (default: built-in set)")
	migrateCmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	codec := share.NewCodec("", share.WithTTL(decodeTTL), share.WithClockSkew(decodeSkew))

	env, err := codec.Decode(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", share.Kind(err), err)
	}

	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")
	return out.Encode(struct {
		*share.Envelope
		ValidFor string `json:"validFor"`
	}{env, codec.Remaining(env).Truncate(time.Second).String()})
}

func runTemplates(cmd *cobra.Command, args []string) error {
	catalog, err := kiosk.LoadCatalog(templatesFile)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, tpl := range catalog.List() {
		fmt.Fprintf(w, "%s\t%s\n", tpl.ID, tpl.Name)
		for _, f := range tpl.Fields {
			required := ""
			if f.Required {
				required = " (required)"
			}
			fmt.Fprintf(w, "  %-28s %-10s %s%s\n", f.ID, f.Type, f.Label, required)
		}
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if databaseURL == "" {
		return fmt.Errorf("--database-url or DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := repository.NewPostgresStore(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RunMigrations(ctx, repository.InitMigration); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
	return nil
}
