package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/validation"
)

// passwordFrom returns the --password flag, then $MYBUDGET_PASSWORD, then
// a line read from stdin.
func passwordFrom(cmd *cobra.Command, prompt string) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	if p := os.Getenv("MYBUDGET_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Long: `Sign in to the budgeting API. With --remember (the default) the
session is kept in the session file and survives restarts; without it the
session only lives as long as this process, which is useful with "serve".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username, _ := cmd.Flags().GetString("username")
			remember, _ := cmd.Flags().GetBool("remember")
			password, err := passwordFrom(cmd, "Password: ")
			if err != nil {
				return err
			}

			user, err := application.Auth.Login(cmd.Context(), domain.CredentialForm{
				Username:   username,
				Password:   password,
				RememberMe: remember,
			})
			if err != nil {
				return describe(err)
			}

			fmt.Println(successStyle.Render("Signed in as " + user.Username))
			if !remember {
				fmt.Println(mutedStyle.Render("Session not remembered: it ends with this process."))
			}
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "username")
	cmd.Flags().StringP("password", "p", "", "password (default: $MYBUDGET_PASSWORD or prompt)")
	cmd.Flags().Bool("remember", true, "keep the session across runs")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, err := passwordFrom(cmd, "Password: ")
			if err != nil {
				return err
			}
			confirm, _ := cmd.Flags().GetString("confirm")
			if confirm == "" {
				confirm = password
			}

			score := validation.PasswordStrength(password)
			fmt.Println(mutedStyle.Render("Password strength: " + validation.StrengthLabel(score)))

			err = application.Auth.Register(cmd.Context(), domain.CredentialForm{
				Username:        username,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return describe(err)
			}

			fmt.Println(successStyle.Render("Account created. Sign in with: mybudget login -u " + username))
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "username (at least 3 characters)")
	cmd.Flags().StringP("password", "p", "", "password, 8 to 72 characters (default: $MYBUDGET_PASSWORD or prompt)")
	cmd.Flags().String("confirm", "", "password confirmation (default: same as --password)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !application.Sessions.IsAuthenticated() {
				fmt.Println(mutedStyle.Render("Not signed in."))
				return nil
			}
			if err := application.Auth.Logout(); err != nil {
				return err
			}
			fmt.Println(successStyle.Render("Signed out."))
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			view := application.Sessions.View()
			if format == jsonOutputFormat {
				return outputJSON(view)
			}

			t := createStyledTable("FIELD", "VALUE")
			t.Row("state", view.State)
			if view.User != nil {
				t.Row("user", fmt.Sprintf("%s (#%d)", view.User.Username, view.User.ID))
				t.Row("remembered", fmt.Sprintf("%t", view.Durable))
			}
			if view.ExpiresAt != nil {
				t.Row("token expires", view.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			fmt.Println(t)
			return nil
		},
	}
}
