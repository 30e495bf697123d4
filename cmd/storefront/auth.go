package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSignInCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sign-in <email>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			user, err := sdk.SignIn(cmd.Context(), args[0], a.password)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s, %s)\n", user.Name, user.Email, user.Role)
			return nil
		},
	}
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sign-out",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			return sdk.SignOut()
		},
	}
}
