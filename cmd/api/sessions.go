package main

import (
	"fmt"

	"github.com/Hemant-14942/CodeArena/internal/config"
	"github.com/spf13/cobra"
)

func newSessionsCmd(cfg func() *config.Config) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect or revoke a user's sessions",
	}
	cmd.PersistentFlags().StringVar(&userID, "user", "", "User id")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List a user's live session ids",
		RunE: func(c *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			backend, err := openSessionBackend(c.Context(), cfg())
			if err != nil {
				return err
			}
			defer backend.Close()

			ids, err := newSessionManager(cfg(), backend.store).ListSessions(c.Context(), userID)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(c.OutOrStdout(), id)
			}
			fmt.Fprintf(c.ErrOrStderr(), "%d active session(s)\n", len(ids))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke",
		Short: "Revoke every session of a user",
		RunE: func(c *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			backend, err := openSessionBackend(c.Context(), cfg())
			if err != nil {
				return err
			}
			defer backend.Close()

			if err := newSessionManager(cfg(), backend.store).DeleteAllSessions(c.Context(), userID); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "revoked all sessions of %s\n", userID)
			return nil
		},
	})

	return cmd
}
