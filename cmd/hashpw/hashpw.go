// Package hashpw provides the hashpw command, which prints a bcrypt hash
// for security.adminpasswordhash.
package hashpw

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/learnforge/trainingportal/internal/security"
)

// Command creates and returns the hashpw command
func Command() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "hashpw",
		Short: "Print a bcrypt hash of the admin password",
		Long: `Hashes a password for the security.adminpasswordhash setting.

The password is read from the first line of standard input unless
--password is given:

  echo -n 'secret' | trainingportal hashpw`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("password") {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			hash, err := security.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password to hash (visible in shell history, prefer stdin)")
	return cmd
}
