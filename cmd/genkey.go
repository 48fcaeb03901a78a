package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/szymon/internal/google"
)

func newGenerateKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-key",
		Short: "Print a new token encryption key",
		Long: `Print a random AES-256 key, base64 encoded, for TOKEN_ENCRYPTION_KEY.

With a key set, the stored Google token is encrypted at rest. Changing or
losing the key means signing in again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := google.GenerateEncryptionKey()
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), google.EncryptionKeyToBase64(key))
			return nil
		},
	}
}
