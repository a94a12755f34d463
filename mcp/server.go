// Package mcp provides the MCP (Model Context Protocol) server for sarex.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sarex-dev/sarex-go/internal/conn"
	"github.com/sarex-dev/sarex-go/internal/logging"
	"github.com/sarex-dev/sarex-go/internal/model"
	"github.com/sarex-dev/sarex-go/internal/render"
	"github.com/sarex-dev/sarex-go/internal/storage"
	"github.com/sarex-dev/sarex-go/internal/validation"
)

// Version is reported to clients during initialization.
var Version = "dev"

// ErrNoProject is returned when a tool needs a project and none is selected.
var ErrNoProject = errors.New("no project selected")

var (
	errUnknownTool     = errors.New("unknown tool")
	errUnknownResource = errors.New("unknown resource")
)

// Server represents the MCP server.
type Server struct {
	storage   StorageBackend
	converter *conn.Converter
	projectID string
	server    *mcp.Server
	logger    *slog.Logger
}

// StorageBackend is the subset of the project store used by the server.
type StorageBackend interface {
	GetProject(ctx context.Context, id string) (*storage.Project, error)
	ListProjects(ctx context.Context) ([]*storage.Project, error)
	GetRelations(ctx context.Context, projectID string) ([]storage.DependencyRelation, error)
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// Option configures a Server.
type Option func(*Server)

// WithConverter sets the converter used by sarex_build_model.
func WithConverter(c *conn.Converter) Option {
	return func(s *Server) {
		s.converter = c
	}
}

// WithProject sets the project used when a tool call names none.
func WithProject(id string) Option {
	return func(s *Server) {
		s.projectID = id
	}
}

// NewServer creates a new MCP server. store may be nil, in which case the
// project tools report that no store is configured.
func NewServer(store StorageBackend, opts ...Option) *Server {
	s := &Server{
		storage: store,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.converter == nil {
		s.converter = conn.NewConverter()
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "sarex",
		Version: Version,
	}, nil)
	s.register()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "sarex_build_model",
			Description: "Build an execution view model from a connector-instance file and write it as json, dot or png.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"ci_file":     {Type: "string", Description: "Path to the connector-instance JSON file"},
					"output_file": {Type: "string", Description: "Path of the file to write"},
					"format": {
						Type:        "string",
						Description: "Output format; anything else produces json",
						Enum:        []any{"json", "dot", "png"},
					},
				},
				Required: []string{"ci_file", "output_file"},
			},
		},
		{
			Name:        "sarex_list_projects",
			Description: "List the projects in the local store.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
		{
			Name:        "sarex_dependency_relations",
			Description: "List the external dependency relations recorded for a project.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"project_id": {Type: "string", Description: "Project ID; defaults to the current project"},
				},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "sarex://schema",
			Name:        "Model Schema",
			Description: "Connector-instance input format and model output formats",
			MimeType:    "text/plain",
		},
		{
			URI:         "sarex://projects",
			Name:        "Projects",
			Description: "Projects in the local store",
			MimeType:    "text/plain",
		},
	}
}

type buildArgs struct {
	CIFile     string `json:"ci_file" validate:"required"`
	OutputFile string `json:"output_file" validate:"required"`
	Format     string `json:"format"`
}

type relationsArgs struct {
	ProjectID string `json:"project_id"`
}

// decodeArgs maps tool arguments onto v and validates it.
func decodeArgs(args map[string]any, v any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return validation.Struct(v)
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "sarex_build_model":
		var a buildArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		return s.handleBuildModel(ctx, a)
	case "sarex_list_projects":
		return s.handleListProjects(ctx)
	case "sarex_dependency_relations":
		var a relationsArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		return s.handleDependencyRelations(ctx, a.ProjectID)
	default:
		return "", fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "sarex://schema":
		return getSchema(), nil
	case "sarex://projects":
		return s.handleListProjects(ctx)
	default:
		return "", fmt.Errorf("%w: %s", errUnknownResource, uri)
	}
}

// Run serves MCP over transport until the client disconnects or ctx is
// done. Pass &mcp.StdioTransport{} to serve over stdin and stdout.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if transport == nil {
		return fmt.Errorf("transport must not be nil")
	}
	s.logger = logging.FromContext(ctx)
	return s.server.Run(ctx, transport)
}

// register exposes ListTools and ListResources through the SDK server.
func (s *Server) register() {
	for _, tool := range s.ListTools() {
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, s.toolHandler(tool.Name))
	}

	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, s.readResource)
	}
}

// toolHandler adapts CallTool. Tool failures are reported in the result so
// the client can show them.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}

		text, err := s.CallTool(ctx, name, args)
		if err != nil {
			s.logger.Debug("tool failed", "tool", name, "error", err)
			return toolError(err), nil
		}
		s.logger.Debug("tool called", "tool", name)

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

func (s *Server) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI

	text, err := s.ReadResource(ctx, uri)
	if errors.Is(err, errUnknownResource) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "text/plain", Text: text},
		},
	}, nil
}

// Tool Handlers

func (s *Server) handleBuildModel(ctx context.Context, a buildArgs) (string, error) {
	result, err := s.converter.Convert(ctx, a.CIFile, a.OutputFile, a.Format)
	if err != nil {
		return "", describeError(err)
	}

	var sb strings.Builder
	sb.WriteString("## Model Built\n\n")
	sb.WriteString(fmt.Sprintf("**Input:** %s\n", a.CIFile))
	sb.WriteString(fmt.Sprintf("**Output:** %s (%s)\n\n", a.OutputFile, result.Format))
	sb.WriteString(fmt.Sprintf("- Connector instances: %d\n", result.Instances))
	sb.WriteString(fmt.Sprintf("- Components: %d\n", result.Components))
	sb.WriteString(fmt.Sprintf("- Connectors: %d\n", result.Connectors))

	return sb.String(), nil
}

// describeError prefixes pipeline errors with their kind.
func describeError(err error) error {
	var parseErr *model.ParseError
	var ioErr *model.IOError
	var renderErr *model.RenderError

	switch {
	case errors.As(err, &parseErr):
		return fmt.Errorf("parse error: %w", err)
	case errors.As(err, &ioErr):
		return fmt.Errorf("io error: %w", err)
	case errors.As(err, &renderErr):
		return fmt.Errorf("render error: %w", err)
	default:
		return err
	}
}

func (s *Server) handleListProjects(ctx context.Context) (string, error) {
	if s.storage == nil {
		return "No store configured. Run `sarex set-store <path>` first.", nil
	}

	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		return "", fmt.Errorf("listing projects: %w", err)
	}

	if len(projects) == 0 {
		return "No projects found.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Projects (%d)\n\n", len(projects)))
	for _, p := range projects {
		marker := " "
		if p.ID == s.projectID {
			marker = "V"
		}
		name := p.Name
		if name == "" {
			name = "(unnamed)"
		}
		sb.WriteString(fmt.Sprintf("%s %s  %s\n", marker, p.ID, name))
	}

	return sb.String(), nil
}

func (s *Server) handleDependencyRelations(ctx context.Context, projectID string) (string, error) {
	if s.storage == nil {
		return "No store configured. Run `sarex set-store <path>` first.", nil
	}

	if projectID == "" {
		projectID = s.projectID
	}
	if projectID == "" {
		return "", ErrNoProject
	}

	p, err := s.storage.GetProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("getting project: %w", err)
	}
	if p == nil {
		return "", fmt.Errorf("%w: %s", storage.ErrProjectNotFound, projectID)
	}

	rels, err := s.storage.GetRelations(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("getting relations: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Dependency Relations for %s (%d)\n\n", projectID, len(rels)))
	if len(rels) == 0 {
		sb.WriteString("No dependency relations recorded.\n")
		return sb.String(), nil
	}
	for _, rel := range rels {
		sb.WriteString(fmt.Sprintf("- `%s` -> `%s`\n", rel.Source, rel.Target))
	}

	return sb.String(), nil
}

// Resource Handlers

func getSchema() string {
	var sb strings.Builder
	sb.WriteString("# sarex Model Schema\n\n")
	sb.WriteString("## Input\n\n")
	sb.WriteString("A JSON array of connector instances, in order:\n\n")
	sb.WriteString("| Field | Type | Required |\n")
	sb.WriteString("|-------|------|----------|\n")
	sb.WriteString("| `connector_type` | string | yes |\n")
	sb.WriteString("| `source_component_values` | object of strings | yes |\n")
	sb.WriteString("| `target_component_values` | object of strings | yes |\n")
	sb.WriteString("| `additional_source_component_values` | object of strings | no |\n")
	sb.WriteString("\nA record's values match an existing component when every non-empty\n")
	sb.WriteString("value is present with the same value in that component.\n")
	sb.WriteString("\n## Output Formats\n\n")
	sb.WriteString(fmt.Sprintf("- `%s`: `{\"components\": [{\"id\", \"component_values\"}], \"connectors\": [{\"connector_type\", \"source_component_id\", \"target_component_id\"}]}`\n", render.FormatJSON))
	sb.WriteString(fmt.Sprintf("- `%s`: Graphviz digraph, one node per component, one edge per connector\n", render.FormatDOT))
	sb.WriteString(fmt.Sprintf("- `%s`: the dot graph laid out by Graphviz\n", render.FormatPNG))
	sb.WriteString("\nUnknown formats produce json.\n")

	return sb.String()
}
