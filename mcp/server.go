// Package mcp exposes kernel functions as Model Context Protocol tools.
//
// Every registered function becomes a tool named "Skill.Function" whose
// arguments are the function's parameters, all typed as strings. A call
// runs the function through the kernel with the arguments as context
// variables and returns the resulting input as text.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/logging"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Kernel is what the server needs from skillmesh.Kernel.
type Kernel interface {
	Skills() core.FunctionsView
	Func(skill, name string) (core.Function, error)
	Run(ctx context.Context, vars *core.ContextVariables, pipeline ...core.Function) *core.Context
}

// Options configures a Server.
type Options struct {
	Name    string
	Version string
	Logger  logging.Logger
	// ExcludedSkills are not exposed. Matching is case-insensitive.
	ExcludedSkills []string
}

// Server hosts kernel functions as MCP tools.
type Server struct {
	kernel Kernel
	opts   Options
	mcp    *server.MCPServer
	tools  []mcpgo.Tool
}

// NewServer creates a Server and registers one tool per function currently
// known to k. Functions registered later are not picked up.
func NewServer(k Kernel, optFns ...func(o *Options)) *Server {
	opts := Options{Name: "skillmesh", Version: "0.1.0"}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	s := &Server{
		kernel: k,
		opts:   opts,
		mcp:    server.NewMCPServer(opts.Name, opts.Version, server.WithToolCapabilities(false)),
	}

	excluded := make(map[string]bool, len(opts.ExcludedSkills))
	for _, skill := range opts.ExcludedSkills {
		excluded[strings.ToLower(skill)] = true
	}

	view := k.Skills()
	var functions []core.FunctionView
	for _, group := range []map[string][]core.FunctionView{view.SemanticFunctions, view.NativeFunctions} {
		for skill, fns := range group {
			if excluded[strings.ToLower(skill)] {
				continue
			}
			functions = append(functions, fns...)
		}
	}
	sort.Slice(functions, func(i, j int) bool { return functions[i].QualifiedName() < functions[j].QualifiedName() })

	for _, fn := range functions {
		tool := NewTool(fn)
		s.tools = append(s.tools, tool)
		s.mcp.AddTool(tool, s.handler(fn.SkillName, fn.Name))
		opts.Logger.Debug("mcp.tool.registered", "tool", tool.Name)
	}

	return s
}

// NewTool describes fn as an MCP tool.
func NewTool(fn core.FunctionView) mcpgo.Tool {
	toolOpts := []mcpgo.ToolOption{mcpgo.WithDescription(fn.Description)}
	for _, p := range fn.Parameters {
		propOpts := []mcpgo.PropertyOption{mcpgo.Description(p.Description)}
		if p.DefaultValue != "" {
			propOpts = append(propOpts, mcpgo.DefaultString(p.DefaultValue))
		}
		toolOpts = append(toolOpts, mcpgo.WithString(p.Name, propOpts...))
	}
	return mcpgo.NewTool(fn.QualifiedName(), toolOpts...)
}

// Tools returns the registered tools in name order.
func (s *Server) Tools() []mcpgo.Tool {
	out := make([]mcpgo.Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// MCPServer returns the underlying server, e.g. to serve it over HTTP.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ServeStdio serves the tools on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handler(skill, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		fn, err := s.kernel.Func(skill, name)
		if err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}

		vars := core.NewContextVariables("")
		for key, value := range request.GetArguments() {
			text, err := argumentString(value)
			if err != nil {
				return mcpgo.NewToolResultError(fmt.Sprintf("argument %q: %v", key, err)), nil
			}
			vars.Set(key, text)
		}

		s.opts.Logger.Debug("mcp.tool.call", "tool", request.Params.Name, "arguments", len(request.GetArguments()))

		out := s.kernel.Run(ctx, vars, fn)
		if out.ErrorOccurred() {
			s.opts.Logger.Warn("mcp.tool.failed", "tool", request.Params.Name, "error", out.LastErrorDescription())
			return mcpgo.NewToolResultError(out.LastErrorDescription()), nil
		}

		return mcpgo.NewToolResultText(out.Result()), nil
	}
}

// argumentString accepts scalar JSON values. Objects and arrays are
// rejected because context variables only hold text.
func argumentString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case bool, float64, int, int64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("unsupported type %T", value)
	}
}
