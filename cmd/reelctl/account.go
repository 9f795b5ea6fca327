package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/reelprompt/reelprompt/internal/client"
	"github.com/reelprompt/reelprompt/internal/model"
)

// newAccountCmd talks to a running API as one signed-in user, which is how
// support staff check what a customer sees.
func newAccountCmd() *cobra.Command {
	var apiURL, token string

	account := &cobra.Command{
		Use:   "account",
		Short: "Inspect an account through the public API",
	}
	account.PersistentFlags().StringVar(&apiURL, "api-url", os.Getenv("REELPROMPT_API_URL"), "API base URL")
	account.PersistentFlags().StringVar(&token, "token", os.Getenv("REELPROMPT_TOKEN"), "session token of the user")

	newClient := func() (*client.Client, error) {
		if apiURL == "" {
			return nil, errors.New("--api-url or REELPROMPT_API_URL is required")
		}
		if token == "" {
			return nil, errors.New("--token or REELPROMPT_TOKEN is required")
		}
		return client.New(apiURL, client.WithToken(token)), nil
	}

	profile := &cobra.Command{
		Use:   "profile",
		Short: "Initialize the account and print its balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			store := client.NewBalanceStore()
			s := client.NewSession(c, store)
			defer s.Close()

			if err := s.Start(cmd.Context()); err != nil {
				return err
			}
			p, err := c.Profile(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("%s credits=%s admin=%t\n", p.Email, p.Credits, p.IsAdmin)
			return nil
		},
	}

	var limit int
	ledger := &cobra.Command{
		Use:   "ledger",
		Short: "Print recent balance changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.Ledger(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range res.Entries {
				cmd.Printf("%s %-14s %8s -> %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Kind, e.Amount, e.BalanceAfter)
			}
			return nil
		},
	}
	ledger.Flags().IntVar(&limit, "limit", 20, "number of entries")

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print the balance every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			store := client.NewBalanceStore()
			unsubscribe := store.Subscribe(func(credits model.Credits) {
				cmd.Printf("credits=%s\n", credits)
			})
			defer unsubscribe()

			s := client.NewSession(c, store)
			defer s.Close()
			return s.Watch(cmd.Context())
		},
	}

	account.AddCommand(profile, ledger, watch)
	return account
}
