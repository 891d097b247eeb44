package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"quiz-portal-client/internal/domain"
)

func NewLoginCmd(configPath *string) *cobra.Command {
	var role, email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as an admin or a user",
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if err := p.fill(&email, "Email: "); err != nil {
				return err
			}
			if err := p.secret(&password, "Password: "); err != nil {
				return err
			}
			res := rt.identity.Login(ctx, email, password, domain.Role(role))
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s. Welcome, %s.\n", res.Message, rt.identity.Current().DisplayName())
			return nil
		}),
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "admin or user")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func NewRegisterCmd(configPath *string) *cobra.Command {
	var role, name, email, password, confirm string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an admin or user account",
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if err := p.fill(&name, "Name: "); err != nil {
				return err
			}
			if err := p.fill(&email, "Email: "); err != nil {
				return err
			}
			if err := p.secret(&password, "Password: "); err != nil {
				return err
			}
			if err := p.secret(&confirm, "Confirm password: "); err != nil {
				return err
			}
			if password != confirm {
				return errors.New("Passwords do not match")
			}
			res := rt.identity.Register(ctx, name, email, password, domain.Role(role))
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s. You can now log in.\n", res.Message)
			return nil
		}),
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "admin or user")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (prompted when empty)")
	return cmd
}

func NewLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored login",
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			if err := rt.identity.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		}),
	}
}

func NewWhoAmICmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in principal",
		RunE: withRuntime(configPath, func(_ context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			out := cmd.OutOrStdout()
			switch p := rt.identity.Current().(type) {
			case domain.Admin:
				fmt.Fprintf(out, "admin %s <%s> (%s), %d quizzes\n", p.Name, p.Email, p.ID, len(p.QuizIDs))
			case domain.User:
				fmt.Fprintf(out, "user %s <%s> (%s), %d attempted quizzes\n", p.Name, p.Email, p.ID, len(p.QuizIDs))
			default:
				return domain.ErrNotLoggedIn
			}
			return nil
		}),
	}
}
