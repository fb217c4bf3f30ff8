package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warekit/punchd/internal/config"
	"github.com/warekit/punchd/internal/remote"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate this device with the backend",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fail(2, err)
	}
	if cfg.Backend.AuthURL == "" {
		fail(1, fmt.Errorf("no identity provider configured (backend.auth_url); nothing to log in to"))
	}

	_, _, err = remote.Authenticate(context.Background(), cfg.Backend.AuthURL, cfg.Backend.TenantID, cfg.Backend.ClientID)
	if err != nil {
		fail(1, err)
	}
	fmt.Println("Authenticated. Tokens saved under ~/.punchd/auth/.")
	return nil
}
