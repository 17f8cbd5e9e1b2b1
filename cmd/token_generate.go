// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/retr0h/shopapi/internal/authtoken"
	"github.com/retr0h/shopapi/internal/pipeline"
)

// TokenGenerator generates signed JWT tokens.
type TokenGenerator interface {
	Generate(
		signingKey string,
		audience string,
		tenant string,
		roles []string,
		subject string,
		permissions []string,
	) (string, error)
}

// tokenGenerateCmd represents the tokenGenerate command.
var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new token",
	Long: `Generate a new API token bound to one API surface, with specific roles
and optional direct permissions.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		signingKey := appConfig.API.Server.Security.SigningKey
		audience, _ := cmd.Flags().GetString("audience")
		tenant, _ := cmd.Flags().GetString("tenant")
		roles, _ := cmd.Flags().GetStringSlice("roles")
		subject, _ := cmd.Flags().GetString("subject")
		permissions, _ := cmd.Flags().GetStringSlice("permissions")
		output, _ := cmd.Flags().GetString("output")

		var tm TokenGenerator = authtoken.New(logger)
		token, err := tm.Generate(signingKey, audience, tenant, roles, subject, permissions)
		if err != nil {
			logFatal("failed to generate token", err)
		}

		if output != "" {
			if err := afero.WriteFile(appFs, output, []byte(token+"\n"), 0o600); err != nil {
				logFatal("failed to write token file", err, "output", output)
			}
			logger.Info("wrote token", slog.String("output", output))
			return
		}

		logger.Info(
			"generated token",
			slog.String("token", token),
			slog.String("audience", audience),
			slog.String("roles", strings.Join(roles, ",")),
			slog.String("subject", subject),
		)
		if len(permissions) > 0 {
			logger.Info(
				"token permissions",
				slog.String("permissions", strings.Join(permissions, ",")),
			)
		}
	},
}

func init() {
	tokenCmd.AddCommand(tokenGenerateCmd)
	allowedRoles := authtoken.GenerateAllowedRoles(authtoken.RoleHierarchy)
	usage := fmt.Sprintf("Roles for the token (allowed: %s)", strings.Join(allowedRoles, ", "))

	tokenGenerateCmd.PersistentFlags().
		StringP("audience", "a", pipeline.AudienceUser,
			fmt.Sprintf("API surface the token is bound to (allowed: %s)",
				strings.Join(pipeline.Audiences, ", ")))
	tokenGenerateCmd.PersistentFlags().
		StringP("tenant", "T", "", "Tenant the token belongs to")
	tokenGenerateCmd.PersistentFlags().
		StringSliceP("roles", "r", []string{}, usage)
	tokenGenerateCmd.PersistentFlags().
		StringP("subject", "u", "", "Subject for the token (e.g., user ID or unique identifier)")
	tokenGenerateCmd.PersistentFlags().
		StringSliceP("permissions", "p", []string{},
			fmt.Sprintf("Direct permissions (overrides role expansion; allowed: %s)",
				strings.Join(authtoken.AllPermissions, ", ")))
	tokenGenerateCmd.PersistentFlags().
		StringP("output", "o", "", "Write the token to a file instead of logging it")

	_ = tokenGenerateCmd.MarkPersistentFlagRequired("roles")
	_ = tokenGenerateCmd.MarkPersistentFlagRequired("subject")

	tokenGenerateCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		audience, _ := cmd.Flags().GetString("audience")
		if err := validateAudience(audience); err != nil {
			logFatal("invalid audience", err, "allowed", pipeline.Audiences)
		}

		roles, _ := cmd.Flags().GetStringSlice("roles")
		if err := validateRoles(roles); err != nil {
			logFatal("invalid roles", err, "allowed", allowedRoles)
		}

		permissions, _ := cmd.Flags().GetStringSlice("permissions")
		if err := validatePermissions(permissions); err != nil {
			logFatal("invalid permissions", err, "allowed", authtoken.AllPermissions)
		}
	}
}

func validateAudience(
	audience string,
) error {
	for _, a := range pipeline.Audiences {
		if a == audience {
			return nil
		}
	}

	return fmt.Errorf("unsupported audience: %s", audience)
}

func validateRoles(
	roles []string,
) error {
	allowedRoles := authtoken.GenerateAllowedRoles(authtoken.RoleHierarchy)
	allowedRolesMap := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowedRolesMap[role] = struct{}{}
	}
	for name := range appConfig.API.Server.Security.Roles {
		allowedRolesMap[name] = struct{}{}
	}

	for _, role := range roles {
		if _, ok := allowedRolesMap[role]; !ok {
			return fmt.Errorf("unsupported role: %s", role)
		}
	}

	return nil
}

func validatePermissions(
	permissions []string,
) error {
	allowed := make(map[string]struct{}, len(authtoken.AllPermissions))
	for _, p := range authtoken.AllPermissions {
		allowed[p] = struct{}{}
	}

	for _, p := range permissions {
		if _, ok := allowed[p]; !ok {
			return fmt.Errorf("unsupported permission: %s", p)
		}
	}

	return nil
}
