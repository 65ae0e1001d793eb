// Package agent exposes the workspace health and chargeback services
// as MCP (Model Context Protocol) tools for AI assistants.
package agent
