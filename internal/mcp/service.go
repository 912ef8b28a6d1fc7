package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/wikiwalk/pkg/engine"
)

type Service struct {
	walks *engine.Service
}

func NewService(svc *engine.Service) *Service {
	return &Service{walks: svc}
}

// --- Tool Handlers ---

func (s *Service) Walk(ctx context.Context, req *mcp.CallToolRequest, args WalkArgs) (*mcp.CallToolResult, WalkResult, error) {
	start := strings.TrimSpace(args.Start)
	target := strings.TrimSpace(args.Target)
	if start == "" || target == "" {
		return nil, WalkResult{}, errors.New("start and target are required")
	}
	if args.MaxSteps != nil && *args.MaxSteps < 0 {
		return nil, WalkResult{}, errors.New("max_steps must be >= 0")
	}

	res, err := s.walks.Walk(ctx, engine.Request{
		Start:    start,
		Target:   target,
		MaxSteps: args.MaxSteps,
		TopK:     args.TopK,
	})
	if err != nil {
		return nil, WalkResult{}, err
	}

	return nil, WalkResult{
		RunID:          res.RunID,
		Status:         string(res.Status),
		Reason:         res.Reason,
		Steps:          res.Steps,
		Path:           res.Path,
		ElapsedSeconds: res.Elapsed.Seconds(),
	}, nil
}

func (s *Service) Links(ctx context.Context, req *mcp.CallToolRequest, args LinksArgs) (*mcp.CallToolResult, LinksResult, error) {
	title := strings.TrimSpace(args.Title)
	if title == "" {
		return nil, LinksResult{}, errors.New("title is required")
	}
	links, err := s.walks.Source.Links(ctx, title)
	if err != nil {
		return nil, LinksResult{}, err
	}
	return nil, LinksResult{Title: title, Links: links}, nil
}
