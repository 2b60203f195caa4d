package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/quillmate/server/middleware"
)

var (
	tokenUserID string
	tokenName   string
	tokenGuest  bool
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token signed with the configured secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(viper.New())
		if err != nil {
			return err
		}
		if p.Secret == "" {
			return errors.New("secret is not configured")
		}
		role := middleware.RoleOwner
		if tokenGuest {
			role = middleware.RoleGuest
		}
		token, err := middleware.IssueToken(p.Secret, tokenUserID, tokenName, role, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "1", "subject of the token")
	tokenCmd.Flags().StringVar(&tokenName, "name", "owner", "display name")
	tokenCmd.Flags().BoolVar(&tokenGuest, "guest", false, "issue a guest token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")
}
