// vfsh-mcp exposes the shell's dispatcher over MCP stdio: one tool,
// execute_command, forwarding a command line through the same
// tokenizer/chain/handler path the interactive REPL uses. The server
// funnels every call through a single dispatcher, honoring the
// single-writer model of the VFS core.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/vfsboot/internal/config"
	"github.com/standardbeagle/vfsboot/internal/dispatcher"
	"github.com/standardbeagle/vfsboot/internal/session"
)

type server struct {
	mu sync.Mutex // serializes command execution over the single-writer VFS
	d  *dispatcher.Dispatcher
}

func main() {
	cfg, err := config.LoadKDL(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	config.ApplyEnv(cfg, os.Getenv)

	sess := session.New(cfg)
	defer func() { _ = sess.Mounts.CloseAll() }()

	s := &server{d: dispatcher.New(sess, nil, nil, nil)}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "vfsh-mcp",
		Version: "0.1.0",
	}, nil)

	srv.AddTool(&mcp.Tool{
		Name:        "execute_command",
		Description: "Execute one vfsh command line (pipelines, &&/||, redirects) and return its output.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"command": {
					Type:        "string",
					Description: "The command line to execute, e.g. 'ls /' or 'echo /a hi | grep h'",
				},
			},
			Required: []string{"command"},
		},
	}, s.handleExecute)

	if err := srv.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (s *server) handleExecute(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult(fmt.Errorf("invalid parameters: %w", err)), nil
	}
	if params.Command == "" {
		return errorResult(fmt.Errorf("must provide 'command'")), nil
	}

	s.mu.Lock()
	res, err := s.d.Run(params.Command)
	s.mu.Unlock()
	if err != nil {
		return errorResult(err), nil
	}

	out := res.Output
	if !res.Success && out == "" {
		out = "command failed"
	}
	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: out}},
	}
	result.IsError = !res.Success
	return result, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
