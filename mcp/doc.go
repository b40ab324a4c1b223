// Package mcp implements the session and dispatch engine of the commerce
// gateway: the JSON-RPC 2.0 envelope handling, the session store with its
// idle-expiry reaper, the initialize handshake, the tool registry and the
// streamable HTTP transport that ties them together.
//
// The package owns no business logic. Tool handlers are registered by the
// gateway package and forward to the backend commerce services; everything
// here is concerned with getting a call from the wire to the right handler
// with a valid session and a caller context attached.
package mcp
