// MCP transport handler using the official MCP Go SDK.
// Exposes catalog and cart operations as MCP tools for agent clients.
package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"shop-session/internal/model"
)

// === MCP Tool Input Types ===

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// ListProductsInput is the input schema for list_products tool.
type ListProductsInput struct {
	Query string `json:"query,omitempty" jsonschema:"search text; empty lists the whole catalog"`
	Skip  int    `json:"skip,omitempty" jsonschema:"number of products to skip"`
	Limit int    `json:"limit,omitempty" jsonschema:"page size (default 20)"`
}

// ProductInput is the input schema for add_to_cart and remove_from_cart tools.
type ProductInput struct {
	ProductID int `json:"product_id" jsonschema:"catalog product ID"`
}

// UpdateQuantityInput is the input schema for update_quantity tool.
type UpdateQuantityInput struct {
	ProductID int `json:"product_id" jsonschema:"catalog product ID"`
	Quantity  int `json:"quantity" jsonschema:"new quantity; zero or less removes the line"`
}

// NewMCPServer creates an MCP server with the shopping tools registered.
// The server exposes a subset of the REST API via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "shop-session",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Shop session tools. Browse the catalog, manage the cart " +
				"and look up the last placed order.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_products",
		Description: "List or search catalog products, one page at a time.",
	}, h.mcpListProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "view_cart",
		Description: "Show the cart lines and totals.",
	}, h.mcpViewCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add one unit of a product to the cart.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_quantity",
		Description: "Set the quantity of a cart line. Zero removes it.",
	}, h.mcpUpdateQuantity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_from_cart",
		Description: "Remove a product from the cart.",
	}, h.mcpRemoveFromCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "last_order",
		Description: "Show the most recently placed order.",
	}, h.mcpLastOrder)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpListProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListProductsInput,
) (*mcp.CallToolResult, *model.ProductPage, error) {
	page, err := h.engine.Products(ctx, model.ProductQuery{
		Query: input.Query,
		Skip:  input.Skip,
		Limit: input.Limit,
	})
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, page, nil
}

func (h *Handler) mcpViewCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	return nil, h.cartSnapshot(), nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	if input.ProductID <= 0 {
		return nil, nil, fmt.Errorf("product_id must be a positive integer")
	}
	if _, err := h.engine.AddProduct(ctx, input.ProductID); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, h.cartSnapshot(), nil
}

func (h *Handler) mcpUpdateQuantity(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input UpdateQuantityInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	if input.ProductID <= 0 {
		return nil, nil, fmt.Errorf("product_id must be a positive integer")
	}
	h.engine.Cart().SetQuantity(ctx, input.ProductID, input.Quantity)
	return nil, h.cartSnapshot(), nil
}

func (h *Handler) mcpRemoveFromCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	if input.ProductID <= 0 {
		return nil, nil, fmt.Errorf("product_id must be a positive integer")
	}
	h.engine.Cart().Remove(ctx, input.ProductID)
	return nil, h.cartSnapshot(), nil
}

func (h *Handler) mcpLastOrder(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, *orderResponse, error) {
	o := h.engine.LastOrder()
	if o == nil {
		return nil, nil, fmt.Errorf("no_order: no order has been placed")
	}
	resp := newOrderResponse(o)
	return nil, &resp, nil
}

func (h *Handler) cartSnapshot() *cartResponse {
	lines, totals := h.engine.Cart().Snapshot()
	resp := newCartResponse(lines, totals)
	return &resp
}

// mcpError converts engine errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	if _, body, ok := errorStatus(err); ok {
		return fmt.Errorf("%s: %s", body.Code, body.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
