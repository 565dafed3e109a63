// Command celerix-contacts is a command-line client for the Celerix Contacts daemon.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-contacts/pkg/sdk"
)

type cli struct {
	addr      string
	tokenFile string
	insecure  bool

	client *sdk.Client
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "celerix-contacts",
		Short:         "Command-line client for the Celerix Contacts daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.connect()
		},
	}

	addr := os.Getenv("CELERIX_CONTACTS_ADDR")
	if addr == "" {
		addr = "http://localhost:7003"
	}
	home, _ := os.UserHomeDir()

	root.PersistentFlags().StringVar(&c.addr, "addr", addr, "daemon base URL (env CELERIX_CONTACTS_ADDR)")
	root.PersistentFlags().StringVar(&c.tokenFile, "token-file", filepath.Join(home, ".celerix-contacts", "session"), "where the session token is kept")
	root.PersistentFlags().BoolVar(&c.insecure, "insecure", false, "accept the daemon's self-signed TLS certificate")

	root.AddCommand(
		c.registerCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.listCmd(),
		c.searchCmd(),
		c.getCmd(),
		c.addCmd(),
		c.editCmd(),
		c.rmCmd(),
		c.resetCmd(),
	)
	return root
}

func (c *cli) connect() error {
	token, err := c.loadToken()
	if err != nil {
		return err
	}
	c.client, err = sdk.New(c.addr, sdk.Options{Token: token, InsecureTLS: c.insecure})
	return err
}

func (c *cli) loadToken() (string, error) {
	b, err := os.ReadFile(c.tokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (c *cli) saveToken(token string) error {
	if token == "" {
		if err := os.Remove(c.tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.tokenFile), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	return os.WriteFile(c.tokenFile, []byte(token+"\n"), 0o600)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
