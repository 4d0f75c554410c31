package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"appointment-service/internal/app"
)

var (
	tokenUser     string
	tokenBusiness string
	tokenRole     string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("jwt_secret is not set")
		}
		auth := app.Authenticator{Secret: []byte(cfg.JWTSecret)}
		tok, err := auth.Sign(app.Principal{
			UserID:     tokenUser,
			BusinessID: tokenBusiness,
			Role:       app.Role(tokenRole),
		}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (sub claim)")
	tokenCmd.Flags().StringVar(&tokenBusiness, "business", "", "business id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(app.RoleOwner), "owner, admin or guest")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	tokenCmd.MarkFlagRequired("user")
	tokenCmd.MarkFlagRequired("business")
}
