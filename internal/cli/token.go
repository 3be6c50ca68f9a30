package cli

import (
	"github.com/spf13/cobra"

	"taxtrail/internal/app"
)

var tokenOpts app.TokenOptions

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := getApp().IssueToken(tokenOpts)
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOpts.Subject, "subject", "", "Token subject, recorded as createdBy on new programs")
	tokenCmd.Flags().StringVar(&tokenOpts.Role, "role", "Public", "Admin or Public")
	tokenCmd.Flags().DurationVar(&tokenOpts.TTL, "ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
}
