// Package gateway assembles the commerce MCP gateway: the backend forwarders
// for the inventory and order services, the tool set exposed to clients, and
// the glue that wires them into the mcp session and dispatch engine.
package gateway
