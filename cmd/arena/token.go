package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dakheel-code/arena-run-sub001/internal/config"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Operator token helpers"}
	cmd.AddCommand(newTokenIssueCommand())
	return cmd
}

func newTokenIssueCommand() *cobra.Command {
	var claims security.Claims
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint a bearer token signed with TOKEN_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if claims.Subject == "" {
				return errors.New("--subject is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			raw, err := security.NewTokenAuthority(cfg.TokenSecret).Issue(claims)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&claims.Subject, "subject", "", "member id")
	cmd.Flags().StringVar(&claims.Name, "name", "", "display name")
	cmd.Flags().StringVar(&claims.Role, "role", "member", "role claim")
	cmd.Flags().BoolVar(&claims.IsAdmin, "admin", false, "grant the admin claim")
	return cmd
}
