package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mangatrack/mangatrack-backend/internal/auth"
	"github.com/mangatrack/mangatrack-backend/internal/config"
)

func main() {
	_ = godotenv.Load()

	var (
		username string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "createtoken <user-id>",
		Short: "Mint a bearer token for the chatbot API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Same config.json and MANGATRACK_AUTH_* lookup as the server
			authCfg, err := config.LoadAuth()
			if err != nil {
				return err
			}
			secret, fallback := authCfg.SigningSecret()
			if fallback {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: auth.jwt_secret is not set, signing with the development secret")
			}

			token, err := auth.NewJWTService(secret, authCfg.Issuer).GenerateAccessToken(args[0], username, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Access token for %s (expires %s):\n", args[0], time.Now().Add(ttl).Format(time.RFC3339))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "name", "", "optional display name")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.AccessTokenTTL, "token lifetime")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
