package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/caradhras-io/commerce-mcp-gateway/mcp"
)

// OrderTools builds the tool family backed by the order service.
func OrderTools(fwd *Forwarder) []mcp.Tool {
	return []mcp.Tool{
		orderHealthTool(fwd),
		getOrderTool(fwd),
		createOrderTool(fwd),
		checkoutOrderTool(fwd),
	}
}

func orderHealthTool(fwd *Forwarder) mcp.Tool {
	return mcp.Tool{
		Name:        "order_health",
		Description: "Check that the order service is reachable and healthy.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"context": {
					"type": "object",
					"description": "Call context carrying the jwt credential and the x-request-id correlation id"
				}
			}
		}`),
		Handler: func(ctx context.Context, args json.RawMessage, cc mcp.CallContext) (mcp.CallToolResult, error) {
			data, err := fwd.Get(ctx, "/info", cc)
			if err != nil {
				return mcp.CallToolResult{}, err
			}
			return mcp.TextResult(string(data)), nil
		},
	}
}

func getOrderTool(fwd *Forwarder) mcp.Tool {
	type params struct {
		Order string `json:"order"`
	}
	return mcp.Tool{
		Name:        "get_order",
		Description: "Fetch an order with its items, payments and totals from the order service.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"order": {"type": "string", "description": "Order id"},
				"context": {
					"type": "object",
					"description": "Call context carrying the jwt credential and the x-request-id correlation id"
				}
			},
			"required": ["order"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage, cc mcp.CallContext) (mcp.CallToolResult, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("decoding get_order arguments: %w", err)
			}
			data, err := fwd.Get(ctx, "/order/"+url.PathEscape(p.Order), cc)
			if err != nil {
				return mcp.CallToolResult{}, err
			}
			return mcp.TextResult(string(data)), nil
		},
	}
}

func createOrderTool(fwd *Forwarder) mcp.Tool {
	type cartItem struct {
		SKU      string  `json:"sku"`
		Currency string  `json:"currency"`
		Quantity int     `json:"quantity"`
		Price    float64 `json:"price"`
	}
	type params struct {
		User     string   `json:"user"`
		Currency string   `json:"currency"`
		Address  string   `json:"address"`
		CartItem cartItem `json:"cartItem"`
	}
	return mcp.Tool{
		Name:        "create_order",
		Description: "Create an order for a user with one cart item.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"user": {"type": "string", "description": "Id of the ordering user"},
				"currency": {"type": "string", "description": "Order currency code"},
				"address": {"type": "string", "description": "Shipping address"},
				"cartItem": {
					"type": "object",
					"description": "Cart item with product sku, currency, quantity and price",
					"properties": {
						"sku": {"type": "string"},
						"currency": {"type": "string"},
						"quantity": {"type": "integer"},
						"price": {"type": "number"}
					},
					"required": ["sku", "quantity", "price"]
				},
				"context": {
					"type": "object",
					"description": "Call context carrying the jwt credential and the x-request-id correlation id"
				}
			},
			"required": ["user", "currency", "address", "cartItem"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage, cc mcp.CallContext) (mcp.CallToolResult, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("decoding create_order arguments: %w", err)
			}
			// The backend expects the item nested under a cart wrapper with
			// the product reference split out.
			payload := map[string]interface{}{
				"user_id":  p.User,
				"currency": p.Currency,
				"address":  p.Address,
				"cart": map[string]interface{}{
					"user_id": p.User,
					"cart_item": []interface{}{
						map[string]interface{}{
							"product":  map[string]interface{}{"sku": p.CartItem.SKU},
							"currency": p.CartItem.Currency,
							"quantity": p.CartItem.Quantity,
							"price":    p.CartItem.Price,
						},
					},
				},
			}
			data, err := fwd.Post(ctx, "/order", payload, cc)
			if err != nil {
				return mcp.CallToolResult{}, err
			}
			return mcp.TextResult(string(data)), nil
		},
	}
}

func checkoutOrderTool(fwd *Forwarder) mcp.Tool {
	type payment struct {
		Type     string  `json:"type"`
		Currency string  `json:"currency"`
		Amount   float64 `json:"amount"`
	}
	type params struct {
		Order   int     `json:"order"`
		Payment payment `json:"payment"`
	}
	return mcp.Tool{
		Name:        "checkout_order",
		Description: "Pay for an existing order. The payment carries a type (CASH, CREDIT or DEBIT), currency and amount.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"order": {"type": "integer", "description": "Order id"},
				"payment": {
					"type": "object",
					"description": "Payment with type, currency and amount",
					"properties": {
						"type": {"type": "string", "enum": ["CASH", "CREDIT", "DEBIT"]},
						"currency": {"type": "string"},
						"amount": {"type": "number"}
					},
					"required": ["type", "amount"]
				},
				"context": {
					"type": "object",
					"description": "Call context carrying the jwt credential and the x-request-id correlation id"
				}
			},
			"required": ["order", "payment"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage, cc mcp.CallContext) (mcp.CallToolResult, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("decoding checkout_order arguments: %w", err)
			}
			payload := map[string]interface{}{
				"id":      p.Order,
				"payment": []interface{}{p.Payment},
			}
			data, err := fwd.Post(ctx, "/checkout", payload, cc)
			if err != nil {
				return mcp.CallToolResult{}, err
			}
			return mcp.TextResult(string(data)), nil
		},
	}
}
