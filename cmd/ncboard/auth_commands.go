package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Save the candidate store bearer token",
		Long:  "Save the candidate store bearer token. Without an argument the token is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no token provided")
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("no token provided")
			}
			if err := ctx.credentials().Set(token); err != nil {
				return err
			}
			ctx.status(cmd.OutOrStdout(), "Login", statusOK, "token saved to "+ctx.config.Paths.CredentialFile)
			return nil
		},
	}
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved candidate store token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.credentials().Clear(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			ctx.status(cmd.OutOrStdout(), "Logout", statusOK, "token removed")
			return nil
		},
	}
}
