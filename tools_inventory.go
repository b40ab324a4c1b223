package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/caradhras-io/commerce-mcp-gateway/mcp"
)

// InventoryTools builds the tool family backed by the inventory service.
func InventoryTools(fwd *Forwarder) []mcp.Tool {
	return []mcp.Tool{
		inventoryHealthTool(fwd),
		createInventoryTool(fwd),
		getProductTool(fwd),
		getInventoryTool(fwd),
		updateInventoryTool(fwd),
	}
}

func inventoryHealthTool(fwd *Forwarder) mcp.Tool {
	return mcp.Tool{
		Name:        "inventory_health",
		Description: "Check that the inventory service is reachable and healthy.",
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

func createInventoryTool(fwd *Forwarder) mcp.Tool {
	type params struct {
		SKU    string `json:"sku"`
		Type   string `json:"type"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	return mcp.Tool{
		Name:        "create_inventory",
		Description: "Create a product in the inventory service.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"sku": {"type": "string", "description": "Stock keeping unit of the product"},
				"type": {"type": "string", "description": "Product type, for example shoe or shirt"},
				"name": {"type": "string", "description": "Human readable product name"},
				"status": {"type": "string", "description": "Initial product status, for example active"},
				"context": {
					"type": "object",
					"description": "Call context carrying the jwt credential and the x-request-id correlation id"
				}
			},
			"required": ["sku", "type", "name", "status"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage, cc mcp.CallContext) (mcp.CallToolResult, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("decoding create_inventory arguments: %w", err)
			}
			data, err := fwd.Post(ctx, "/product", p, cc)
			if err != nil {
				return mcp.CallToolResult{}, err
			}
			return mcp.TextResult(string(data)), nil
		},
	}
}

func getProductTool(fwd *Forwarder) mcp.Tool {
	return mcp.Tool{
		Name:        "get_product",
		Description: "Fetch a product definition by SKU from the inventory service.",
		InputSchema: skuOnlySchema,
		Handler:     skuLookupHandler(fwd, "/product/"),
	}
}

func getInventoryTool(fwd *Forwarder) mcp.Tool {
	return mcp.Tool{
		Name:        "get_inventory",
		Description: "Fetch current stock levels for a SKU from the inventory service.",
		InputSchema: skuOnlySchema,
		Handler:     skuLookupHandler(fwd, "/inventory/product/"),
	}
}

var skuOnlySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"sku": {"type": "string", "description": "Stock keeping unit of the product"},
		"context": {
			"type": "object",
			"description": "Call context carrying the jwt credential and the x-request-id correlation id"
		}
	},
	"required": ["sku"]
}`)

// skuLookupHandler builds a GET handler for the given backend route prefix.
// The product catalog lives under /product, the stock counters under
// /inventory/product.
func skuLookupHandler(fwd *Forwarder, prefix string) mcp.ToolHandler {
	type params struct {
		SKU string `json:"sku"`
	}
	return func(ctx context.Context, args json.RawMessage, cc mcp.CallContext) (mcp.CallToolResult, error) {
		var p params
		if err := json.Unmarshal(args, &p); err != nil {
			return mcp.CallToolResult{}, fmt.Errorf("decoding arguments: %w", err)
		}
		data, err := fwd.Get(ctx, prefix+url.PathEscape(p.SKU), cc)
		if err != nil {
			return mcp.CallToolResult{}, err
		}
		return mcp.TextResult(string(data)), nil
	}
}

func updateInventoryTool(fwd *Forwarder) mcp.Tool {
	type params struct {
		SKU       string `json:"sku"`
		Available int    `json:"available"`
		Reserved  int    `json:"reserved"`
		Sold      int    `json:"sold"`
	}
	type payload struct {
		Available int `json:"available"`
		Reserved  int `json:"reserved"`
		Sold      int `json:"sold"`
	}
	return mcp.Tool{
		Name:        "update_inventory",
		Description: "Replace the stock counters of a SKU in the inventory service.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"sku": {"type": "string", "description": "Stock keeping unit of the product"},
				"available": {"type": "integer", "description": "Units available for sale"},
				"reserved": {"type": "integer", "description": "Units held by open carts or orders"},
				"sold": {"type": "integer", "description": "Units already sold"},
				"context": {
					"type": "object",
					"description": "Call context carrying the jwt credential and the x-request-id correlation id"
				}
			},
			"required": ["sku", "available", "reserved", "sold"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage, cc mcp.CallContext) (mcp.CallToolResult, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("decoding update_inventory arguments: %w", err)
			}
			data, err := fwd.Put(ctx, "/inventory/product/"+url.PathEscape(p.SKU), payload{
				Available: p.Available,
				Reserved:  p.Reserved,
				Sold:      p.Sold,
			}, cc)
			if err != nil {
				return mcp.CallToolResult{}, err
			}
			return mcp.TextResult(string(data)), nil
		},
	}
}
