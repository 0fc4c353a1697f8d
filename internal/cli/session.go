package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Username string
	Password string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the shop",
		Long: `Log in to the shop and keep the credentials for later invocations.

Username and password default to SHOP_USERNAME / SHOP_PASSWORD (or the
credentials section of --config). A missing password is read from stdin.

Example:
  shopctl login --username emilys --password emilyspass`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(opts.RootOptions, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				username := firstNonEmpty(opts.Username, env.Credentials.Username)
				password := firstNonEmpty(opts.Password, env.Credentials.Password)
				if password == "" && username != "" {
					fmt.Fprint(out.GetErrWriter(), "Password: ")
					password = readLine()
				}

				u, err := env.Engine.Login(ctx, username, password)
				if err != nil {
					return err
				}
				return out.Success(userView{Authenticated: true, User: u})
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "account password")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the cart, checkout and last order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(rootOpts, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				if err := env.Engine.Logout(ctx); err != nil {
					return err
				}
				return out.Success(message{Message: "Logged out"})
			})
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(rootOpts, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				u := env.Engine.User()
				return out.Success(userView{Authenticated: u != nil, User: u})
			})
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func readLine() string {
	line, _ := bufio.NewReader(stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
