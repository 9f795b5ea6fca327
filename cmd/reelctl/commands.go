package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reelprompt/reelprompt/internal/model"
)

func newMigrateCmd(withBackend backendRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(cmd *cobra.Command, _ []string, b *backend) error {
			applied, err := b.migrate(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				cmd.Println("schema is up to date")
				return nil
			}
			for _, v := range applied {
				cmd.Printf("applied %s\n", v)
			}
			return nil
		}),
	}
}

func newPromptsCmd(withBackend backendRunner) *cobra.Command {
	prompts := &cobra.Command{
		Use:   "prompts",
		Short: "Manage the prompt catalog",
	}

	var dryRun bool
	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or replace catalog prompts from a YAML file",
		Long: `Reads a YAML document with a top-level "prompts" list. Each entry
needs a title and an asset_url; entries without an id get a generated one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			items, err := parseCatalogFile(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if dryRun {
				cmd.Printf("%d prompts valid\n", len(items))
				return nil
			}

			return withBackend(func(cmd *cobra.Command, _ []string, b *backend) error {
				for _, p := range items {
					saved, err := b.catalog.Upsert(cmd.Context(), p)
					if err != nil {
						return fmt.Errorf("prompt %q: %w", p.Title, err)
					}
					cmd.Printf("saved %s %s\n", saved.ID, saved.Title)
				}
				return nil
			})(cmd, args)
		},
	}
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")

	prompts.AddCommand(importCmd)
	return prompts
}

func newBonusCmd(withBackend backendRunner) *cobra.Command {
	bonus := &cobra.Command{
		Use:   "bonus",
		Short: "Manage per-email signup bonus overrides",
	}

	var note string
	set := &cobra.Command{
		Use:   "set <email> <credits>",
		Short: "Set the signup bonus for an email address",
		Args:  cobra.ExactArgs(2),
		RunE: withBackend(func(cmd *cobra.Command, args []string, b *backend) error {
			amount, err := parseCredits(args[1])
			if err != nil {
				return err
			}
			saved, err := b.admin.SetEmailBonus(cmd.Context(), args[0], &amount, note)
			if err != nil {
				return err
			}
			cmd.Printf("bonus for %s set to %s\n", saved.EmailKey, amount)
			return nil
		}),
	}
	set.Flags().StringVar(&note, "note", "", "free-text note stored with the override")

	rm := &cobra.Command{
		Use:   "rm <email>",
		Short: "Remove the signup bonus override for an email address",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(cmd *cobra.Command, args []string, b *backend) error {
			if err := b.admin.DeleteEmailBonus(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("bonus for %s removed\n", args[0])
			return nil
		}),
	}

	bonus.AddCommand(set, rm)
	return bonus
}

func newCreditsCmd(withBackend backendRunner) *cobra.Command {
	credits := &cobra.Command{
		Use:   "credits",
		Short: "Adjust user balances",
	}

	var reason string
	grant := &cobra.Command{
		Use:   "grant <userID> <amount>",
		Short: "Add credits to a user's balance",
		Args:  cobra.ExactArgs(2),
		RunE: withBackend(func(cmd *cobra.Command, args []string, b *backend) error {
			amount, err := parseCredits(args[1])
			if err != nil {
				return err
			}
			balance, err := b.admin.GrantCredits(cmd.Context(), args[0], amount, reason)
			if err != nil {
				return err
			}
			cmd.Printf("granted %s to %s, balance now %s\n", amount, args[0], balance)
			return nil
		}),
	}
	grant.Flags().StringVar(&reason, "reason", "", "reason recorded in the ledger")

	credits.AddCommand(grant)
	return credits
}

// parseCredits reads a positive decimal credit amount such as "2.5".
func parseCredits(raw string) (model.Credits, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid credits amount %q", raw)
	}
	c, err := model.ParseCredits(f)
	if err != nil {
		return 0, fmt.Errorf("invalid credits amount %q: %w", raw, err)
	}
	if c <= 0 {
		return 0, fmt.Errorf("credits amount must be positive, got %q", raw)
	}
	return c, nil
}
