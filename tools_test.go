package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caradhras-io/commerce-mcp-gateway/mcp"
)

// recordingBackend captures the last request the forwarder sent.
type recordingBackend struct {
	server *httptest.Server
	method string
	path   string
	body   map[string]interface{}
}

func newRecordingBackend(t *testing.T) *recordingBackend {
	t.Helper()
	rb := &recordingBackend{}
	rb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rb.method = r.Method
		rb.path = r.URL.Path
		rb.body = nil
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&rb.body)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(rb.server.Close)
	return rb
}

func callTool(t *testing.T, tools []mcp.Tool, name, args string) mcp.CallToolResult {
	t.Helper()
	for _, tool := range tools {
		if tool.Name != name {
			continue
		}
		result, err := tool.Handler(context.Background(), json.RawMessage(args), testCallContext)
		require.NoError(t, err)
		return result
	}
	t.Fatalf("tool %s not found", name)
	return mcp.CallToolResult{}
}

func TestToolSchemasAreValid(t *testing.T) {
	inventory := NewForwarder("inventory", "http://localhost:8080")
	orders := NewForwarder("order", "http://localhost:8081")

	all := []mcp.Tool{PingTool(), InfoTool(Info{})}
	all = append(all, InventoryTools(inventory)...)
	all = append(all, OrderTools(orders)...)

	_, err := mcp.NewToolManager(all...)
	assert.NoError(t, err)
}

func TestPingTool(t *testing.T) {
	result, err := PingTool().Handler(context.Background(), nil, mcp.CallContext{})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "pong", result.Content[0].Text)
}

func TestInfoTool(t *testing.T) {
	info := NewInfo(DefaultConfig())
	result, err := InfoTool(info).Handler(context.Background(), nil, mcp.CallContext{})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	var got Info
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &got))
	assert.Equal(t, "commerce-mcp-gateway", got.AppName)
	assert.Equal(t, 1800, got.SessionTimeout)
}

func TestInventoryToolRoutes(t *testing.T) {
	rb := newRecordingBackend(t)
	tools := InventoryTools(NewForwarder("inventory", rb.server.URL))

	tests := []struct {
		tool       string
		args       string
		wantMethod string
		wantPath   string
	}{
		{"inventory_health", `{}`, http.MethodGet, "/info"},
		{"create_inventory", `{"sku":"SKU-1","type":"shoe","name":"Runner","status":"active"}`, http.MethodPost, "/product"},
		{"get_product", `{"sku":"SKU-1"}`, http.MethodGet, "/product/SKU-1"},
		{"get_inventory", `{"sku":"SKU-1"}`, http.MethodGet, "/inventory/product/SKU-1"},
		{"update_inventory", `{"sku":"SKU-1","available":5,"reserved":2,"sold":1}`, http.MethodPut, "/inventory/product/SKU-1"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			result := callTool(t, tools, tt.tool, tt.args)
			assert.False(t, result.IsError)
			assert.Equal(t, tt.wantMethod, rb.method)
			assert.Equal(t, tt.wantPath, rb.path)
		})
	}
}

func TestProductAndStockLookupsUseDistinctRoutes(t *testing.T) {
	rb := newRecordingBackend(t)
	tools := InventoryTools(NewForwarder("inventory", rb.server.URL))

	// The catalog and the stock counters live on different backend routes.
	callTool(t, tools, "get_product", `{"sku":"SKU-1"}`)
	assert.Equal(t, "/product/SKU-1", rb.path)

	callTool(t, tools, "get_inventory", `{"sku":"SKU-1"}`)
	assert.Equal(t, "/inventory/product/SKU-1", rb.path)
}

func TestCreateInventoryPayload(t *testing.T) {
	rb := newRecordingBackend(t)
	tools := InventoryTools(NewForwarder("inventory", rb.server.URL))

	callTool(t, tools, "create_inventory", `{"sku":"SKU-1","type":"shoe","name":"Runner","status":"active"}`)

	assert.Equal(t, "SKU-1", rb.body["sku"])
	assert.Equal(t, "shoe", rb.body["type"])
	assert.Equal(t, "Runner", rb.body["name"])
	assert.Equal(t, "active", rb.body["status"])
}

func TestUpdateInventoryPayloadOmitsSKU(t *testing.T) {
	rb := newRecordingBackend(t)
	tools := InventoryTools(NewForwarder("inventory", rb.server.URL))

	callTool(t, tools, "update_inventory", `{"sku":"SKU-1","available":5,"reserved":2,"sold":1}`)

	// The sku rides in the path, not the body.
	assert.NotContains(t, rb.body, "sku")
	assert.Equal(t, float64(5), rb.body["available"])
	assert.Equal(t, float64(2), rb.body["reserved"])
	assert.Equal(t, float64(1), rb.body["sold"])
}

func TestOrderToolRoutes(t *testing.T) {
	rb := newRecordingBackend(t)
	tools := OrderTools(NewForwarder("order", rb.server.URL))

	tests := []struct {
		tool       string
		args       string
		wantMethod string
		wantPath   string
	}{
		{"order_health", `{}`, http.MethodGet, "/info"},
		{"get_order", `{"order":"42"}`, http.MethodGet, "/order/42"},
		{"create_order", `{"user":"u-1","currency":"USD","address":"1 Main St","cartItem":{"sku":"SKU-1","currency":"USD","quantity":2,"price":19.9}}`, http.MethodPost, "/order"},
		{"checkout_order", `{"order":42,"payment":{"type":"CASH","currency":"USD","amount":39.8}}`, http.MethodPost, "/checkout"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			result := callTool(t, tools, tt.tool, tt.args)
			assert.False(t, result.IsError)
			assert.Equal(t, tt.wantMethod, rb.method)
			assert.Equal(t, tt.wantPath, rb.path)
		})
	}
}

func TestCreateOrderPayloadShape(t *testing.T) {
	rb := newRecordingBackend(t)
	tools := OrderTools(NewForwarder("order", rb.server.URL))

	callTool(t, tools, "create_order", `{"user":"u-1","currency":"USD","address":"1 Main St","cartItem":{"sku":"SKU-1","currency":"USD","quantity":2,"price":19.9}}`)

	assert.Equal(t, "u-1", rb.body["user_id"])
	assert.Equal(t, "USD", rb.body["currency"])
	assert.Equal(t, "1 Main St", rb.body["address"])

	cart, ok := rb.body["cart"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "u-1", cart["user_id"])

	items, ok := cart["cart_item"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)

	item := items[0].(map[string]interface{})
	product := item["product"].(map[string]interface{})
	assert.Equal(t, "SKU-1", product["sku"])
	assert.Equal(t, float64(2), item["quantity"])
	assert.Equal(t, 19.9, item["price"])
}

func TestCheckoutOrderPayloadShape(t *testing.T) {
	rb := newRecordingBackend(t)
	tools := OrderTools(NewForwarder("order", rb.server.URL))

	callTool(t, tools, "checkout_order", `{"order":42,"payment":{"type":"CREDIT","currency":"USD","amount":39.8}}`)

	assert.Equal(t, float64(42), rb.body["id"])
	payments, ok := rb.body["payment"].([]interface{})
	require.True(t, ok)
	require.Len(t, payments, 1)

	payment := payments[0].(map[string]interface{})
	assert.Equal(t, "CREDIT", payment["type"])
	assert.Equal(t, "USD", payment["currency"])
	assert.Equal(t, 39.8, payment["amount"])
}
