package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewCartCommand creates the cart command group.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the cart",
		Long: `Show or change the cart. The cart is kept between invocations.

Examples:
  shopctl cart add 1
  shopctl cart set 1 3
  shopctl cart remove 1`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show cart lines and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(rootOpts, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				return out.Success(newCartView(env.Engine.Cart().Snapshot()))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <product-id>",
		Short: "Add one unit of a product",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithEnv(rootOpts, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				if _, err := env.Engine.AddProduct(ctx, id); err != nil {
					return err
				}
				return out.Success(newCartView(env.Engine.Cart().Snapshot()))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithEnv(rootOpts, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				env.Engine.Cart().Remove(ctx, id)
				return out.Success(newCartView(env.Engine.Cart().Snapshot()))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set a line quantity; 0 removes the line",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid quantity %q", args[1]))
			}
			return runWithEnv(rootOpts, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				env.Engine.Cart().SetQuantity(ctx, id, qty)
				return out.Success(newCartView(env.Engine.Cart().Snapshot()))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(rootOpts, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				env.Engine.Cart().Clear(ctx)
				return out.Success(newCartView(env.Engine.Cart().Snapshot()))
			})
		},
	})

	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid product id %q", s))
	}
	return id, nil
}

// exactArgs reports a wrong argument count as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}
