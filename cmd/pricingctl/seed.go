package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codyseavey/vinyl-exchange/internal/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default condition tiers and global policy if missing",
	Long: `Seed reference data. Safe to run repeatedly: existing tiers and an existing
active global policy are left untouched.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	_, db, a, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.RunMigrations(db); err != nil {
		return err
	}

	tiers, err := a.Conditions.List(cmd.Context())
	if err != nil {
		return err
	}
	policies, err := a.Policies.List(cmd.Context(), true)
	if err != nil {
		return err
	}
	fmt.Printf("Seed complete: %d condition tiers, %d active policies\n", len(tiers), len(policies))
	return nil
}
