// Package mcp serves a session's knowledge tools over the Model Context
// Protocol so an external narrator can drive the world.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"chronicle/internal/knowledge"
	"chronicle/internal/tools"
)

type Server struct {
	catalogue *tools.Catalogue
	knowledge *knowledge.Service
	session   tools.Session
	mcp       *sdk.Server
}

func NewServer(catalogue *tools.Catalogue, svc *knowledge.Service, session tools.Session, set tools.Set, version string) *Server {
	s := &Server{
		catalogue: catalogue,
		knowledge: svc,
		session:   session,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "chronicle",
			Version: version,
		}, nil),
	}
	s.registerTools(set)
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
