package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/goodsco/referidos_backend/config"
	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/repositories"
	"github.com/goodsco/referidos_backend/services"
	"github.com/goodsco/referidos_backend/utils"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "referidosctl",
		Short:   "Maintenance tasks for the referidos backend",
		Version: Version,
	}

	rootCmd.AddCommand(dedupLeadsCmd())
	rootCmd.AddCommand(seedAdminCmd())
	rootCmd.AddCommand(ensureIndexesCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withDatabase loads settings, connects to MongoDB and runs fn
func withDatabase(ctx context.Context, fn func(ctx context.Context, db *mongo.Database) error) error {
	settings := config.Load()
	utils.InitLogger(settings.LogLevel, true)

	client, db, err := config.ConnectDB(ctx, settings)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer client.Disconnect(context.Background())

	return fn(ctx, db)
}

func dedupLeadsCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "dedup-leads",
		Short: "Merge leads that share a phone number",
		Long: `Group leads by phone and keep one lead per group.

The kept lead is the oldest lead with a commission, or the oldest lead.
A duplicate's commission moves to the kept lead when it has none; a
duplicate whose commission cannot move is left in place.

Examples:
  referidosctl dedup-leads --dry-run
  referidosctl dedup-leads`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, db *mongo.Database) error {
				dedup := services.NewLeadDeduplicator(
					repositories.NewLeadRepository(db),
					repositories.NewCommissionRepository(db),
					repositories.NewPhoneClaimRepository(db),
				)
				report, err := dedup.Run(ctx, dryRun)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

func seedAdminCmd() *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an administrative account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			return withDatabase(cmd.Context(), func(ctx context.Context, db *mongo.Database) error {
				partners := services.NewPartnerService(repositories.NewPartnerRepository(db))
				admin, err := partners.SeedAdmin(ctx, name, email, password, models.Role(strings.ToUpper(role)))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s) referral code %s\n", admin.Role, admin.Email, admin.ID.Hex(), admin.ReferralCode)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrador", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "ADMIN or MANAGER")
	return cmd
}

func ensureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes the backend relies on",
		RunE: func(cmd *cobra.Command, args []string) error {
			// ConnectDB already ensures them
			return withDatabase(cmd.Context(), func(ctx context.Context, db *mongo.Database) error {
				for _, ix := range repositories.Indexes() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d indexes\n", ix.Collection, len(ix.Models))
				}
				return nil
			})
		},
	}
}
