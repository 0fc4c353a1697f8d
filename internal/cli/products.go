package cli

import (
	"context"

	"github.com/spf13/cobra"

	"shop-session/internal/model"
	"shop-session/internal/session"
)

// ProductsOptions holds flags for the products command.
type ProductsOptions struct {
	*RootOptions
	Query string
	Skip  int
	Limit int
}

// NewProductsCommand creates the products command.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List or search catalog products",
		Long: `List or search catalog products, one page at a time.

Example:
  shopctl products --query phone --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(opts.RootOptions, cmd, func(ctx context.Context, env *Env, out *OutputFormatter) error {
				page, err := env.Engine.Products(ctx, model.ProductQuery{
					Query: opts.Query,
					Skip:  opts.Skip,
					Limit: opts.Limit,
				})
				if err != nil {
					return err
				}
				return out.Success(productsView{page})
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "search text")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "number of products to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", session.DefaultPageSize, "page size")

	return cmd
}
