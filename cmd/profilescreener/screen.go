package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/profile-screener/internal/profile"
)

func newScreenCmd() *cobra.Command {
	var creds profile.Credentials
	cmd := &cobra.Command{
		Use:   "screen <profile-url>",
		Short: "Screens one profile and prints the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreen(cmd, args[0], creds)
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "login email, used only if the profile requires sign-in")
	cmd.Flags().StringVar(&creds.Password, "password", "", "login password")
	return cmd
}

func runScreen(cmd *cobra.Command, url string, creds profile.Credentials) error {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return err
	}
	if (creds.Email == "") != (creds.Password == "") {
		return errors.New("--email and --password must be given together")
	}

	var result profile.Result
	if creds.Email != "" {
		result, err = a.screener.ScreenWithCredentials(cmd.Context(), url, creds)
	} else {
		result, err = a.screener.Screen(cmd.Context(), url)
	}
	if err != nil {
		return fmt.Errorf("screen %s (%s): %w", url, profile.KindOf(err), err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
