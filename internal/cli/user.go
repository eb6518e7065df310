package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamzah/kharcha/internal/config"
	"github.com/hamzah/kharcha/internal/store"
	"github.com/hamzah/kharcha/pkg/authn"
)

var (
	userEmail   string
	revokeToken string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE:  runUserCreate,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
	Long: `Manage API tokens. Tokens are minted out-of-band and presented by
clients as bearer credentials on every request.`,
}

var tokenMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint an API token for a user",
	RunE:  runTokenMint,
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke an API token",
	RunE:  runTokenRevoke,
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "user email (required)")
	tokenMintCmd.Flags().StringVar(&userEmail, "email", "", "user email (required)")
	tokenRevokeCmd.Flags().StringVar(&revokeToken, "token", "", "token to revoke (required)")

	userCmd.AddCommand(userCreateCmd)
	tokenCmd.AddCommand(tokenMintCmd, tokenRevokeCmd)
	rootCmd.AddCommand(userCmd, tokenCmd)
}

// openDatabase loads the configuration and opens the shared database.
func openDatabase() (*sql.DB, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	if userEmail == "" {
		return fmt.Errorf("--email is required")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := authn.NewStore(db).CreateUser(cmd.Context(), userEmail)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s)\n", id, userEmail)
	return nil
}

func runTokenMint(cmd *cobra.Command, args []string) error {
	if userEmail == "" {
		return fmt.Errorf("--email is required")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	auth := authn.NewStore(db)
	userID, err := auth.FindUserByEmail(cmd.Context(), userEmail)
	if err != nil {
		return err
	}

	token, err := auth.MintToken(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	if revokeToken == "" {
		return fmt.Errorf("--token is required")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := authn.NewStore(db).Revoke(cmd.Context(), revokeToken); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Token revoked")
	return nil
}
