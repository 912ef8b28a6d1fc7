// Package mcp exposes walks as Model Context Protocol tools.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/wikiwalk/pkg/engine"
)

// NewMCPServer registers the walk tools on a new MCP server.
func NewMCPServer(svc *engine.Service, version string) *mcp.Server {
	service := NewService(svc)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "wikiwalk",
		Version: version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "wiki_walk",
		Description: "Walk Wikipedia from a start page toward a target page, always following the link semantically closest to the target. Returns the path and whether the target was reached.",
	}, service.Walk)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "wiki_links",
		Description: "List the article links of a Wikipedia page (namespaced pages and self-links removed).",
	}, service.Links)

	return s
}
