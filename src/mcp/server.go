// Package mcp exposes read-only release lookups as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"relkit/src/logger"
	"relkit/src/release"
	"relkit/src/teamcity"
	"relkit/src/version"
)

// BuildInfo is the JSON shape of a build returned by the tools.
type BuildInfo struct {
	ID          int64    `json:"id"`
	BuildTypeID string   `json:"build_type_id"`
	Number      string   `json:"number,omitempty"`
	Branch      string   `json:"branch,omitempty"`
	State       string   `json:"state,omitempty"`
	Status      string   `json:"status,omitempty"`
	Pinned      bool     `json:"pinned"`
	Tags        []string `json:"tags"`
	WebURL      string   `json:"web_url,omitempty"`
}

// LookupResult wraps a lookup. A lookup that matched nothing is not an error.
type LookupResult struct {
	Found bool       `json:"found"`
	Build *BuildInfo `json:"build,omitempty"`
	// Number is set by get_build_number.
	Number string `json:"number,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// VersionCheck is the result of check_version.
type VersionCheck struct {
	Version  string `json:"version"`
	Kind     string `json:"kind"`
	Valid    bool   `json:"valid"`
	Tag      string `json:"tag,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Semantic bool   `json:"semantic"`
}

// Server is the MCP server for relkit.
type Server struct {
	mcpServer *server.MCPServer
	locator   *release.Locator
}

// NewServer creates a new MCP server backed by a TeamCity client.
func NewServer(client *teamcity.Client, log logger.Logger, serverVersion string) *Server {
	s := server.NewMCPServer(
		"relkit",
		serverVersion,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		locator:   release.NewLocator(client, log),
	}
	srv.registerTools()

	return srv
}

func (s *Server) registerTools() {
	taggedTool := mcp.NewTool("find_tagged_build",
		mcp.WithDescription("Find the most recent pinned TeamCity build of a build configuration on a branch that carries a tag."),
		mcp.WithString("branch", mcp.Required(), mcp.Description("Branch name, e.g. main or release/v1.2.3")),
		mcp.WithString("build_config_id", mcp.Required(), mcp.Description("TeamCity build configuration id")),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Build tag, e.g. v1.2.3")),
	)

	artifactTool := mcp.NewTool("find_build_with_artifact",
		mcp.WithDescription("Find the newest TeamCity build of a build configuration on a branch that produced an artifact."),
		mcp.WithString("branch", mcp.Required(), mcp.Description("Branch name")),
		mcp.WithString("build_config_id", mcp.Required(), mcp.Description("TeamCity build configuration id")),
		mcp.WithString("artifact_name", mcp.Required(), mcp.Description("Artifact file name")),
		mcp.WithString("artifact_path", mcp.Description("Directory inside the build artifacts (default: root)")),
	)

	numberTool := mcp.NewTool("get_build_number",
		mcp.WithDescription("Get the build counter of the release build of a version (branch release/v<version>, tag v<version>)."),
		mcp.WithString("build_config_id", mcp.Required(), mcp.Description("TeamCity build configuration id")),
		mcp.WithString("version", mcp.Required(), mcp.Description("Release version, e.g. 1.2.3")),
	)

	versionTool := mcp.NewTool("check_version",
		mcp.WithDescription("Validate a version string and return the release tag and branch derived from it."),
		mcp.WithString("version", mcp.Required(), mcp.Description("Version string")),
		mcp.WithString("kind", mcp.Description("semantic (major.minor.patch, default) or extended (adds optional .build and -modifier)")),
	)

	s.mcpServer.AddTool(taggedTool, s.handleFindTaggedBuild)
	s.mcpServer.AddTool(artifactTool, s.handleFindBuildWithArtifact)
	s.mcpServer.AddTool(numberTool, s.handleGetBuildNumber)
	s.mcpServer.AddTool(versionTool, s.handleCheckVersion)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleFindTaggedBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, missing := requireStrings(request, "branch", "build_config_id", "tag")
	if missing != "" {
		return mcp.NewToolResultError(missing + " parameter is required"), nil
	}

	build, err := s.locator.FindTaggedBuild(ctx, args["branch"], args["build_config_id"], args["tag"])
	return lookupResult(build, "", err)
}

func (s *Server) handleFindBuildWithArtifact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, missing := requireStrings(request, "branch", "build_config_id", "artifact_name")
	if missing != "" {
		return mcp.NewToolResultError(missing + " parameter is required"), nil
	}
	path := request.GetString("artifact_path", "")

	build, err := s.locator.FindBuildWithArtifact(ctx, args["branch"], args["build_config_id"], path, args["artifact_name"])
	return lookupResult(build, "", err)
}

func (s *Server) handleGetBuildNumber(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, missing := requireStrings(request, "build_config_id", "version")
	if missing != "" {
		return mcp.NewToolResultError(missing + " parameter is required"), nil
	}
	if err := version.CheckSemantic(args["version"]); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	number, err := s.locator.FindBuildNumber(ctx, args["build_config_id"], args["version"])
	return lookupResult(nil, number, err)
}

func (s *Server) handleCheckVersion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v := request.GetString("version", "")
	if v == "" {
		return mcp.NewToolResultError("version parameter is required"), nil
	}
	kind := request.GetString("kind", "semantic")

	check := VersionCheck{Version: v, Kind: kind, Semantic: version.IsSemantic(v)}
	switch kind {
	case "semantic":
		check.Valid = check.Semantic
	case "extended":
		check.Valid = version.IsExtended(v)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q: use semantic or extended", kind)), nil
	}
	if check.Valid {
		check.Tag = version.Tag(v)
		check.Branch = version.ReleaseBranch(v)
	}
	return jsonResult(check)
}

func requireStrings(request mcp.CallToolRequest, names ...string) (map[string]string, string) {
	values := make(map[string]string, len(names))
	for _, name := range names {
		v := request.GetString(name, "")
		if v == "" {
			return nil, name
		}
		values[name] = v
	}
	return values, ""
}

// lookupResult turns a locator outcome into a tool result. Not-found is a
// regular answer; any other error is reported as a tool error.
func lookupResult(build *teamcity.Build, number string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if errors.Is(err, teamcity.ErrNotFound) {
			return jsonResult(LookupResult{Found: false, Reason: err.Error()})
		}
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", teamcity.WrapError(err))), nil
	}

	result := LookupResult{Found: true, Number: number}
	if build != nil {
		result.Build = toBuildInfo(build)
	}
	return jsonResult(result)
}

func toBuildInfo(b *teamcity.Build) *BuildInfo {
	tags := b.TagNames()
	if tags == nil {
		tags = []string{}
	}
	return &BuildInfo{
		ID:          b.ID,
		BuildTypeID: b.BuildTypeID,
		Number:      b.Number,
		Branch:      b.BranchName,
		State:       b.State,
		Status:      b.Status,
		Pinned:      b.Pinned,
		Tags:        tags,
		WebURL:      b.WebURL,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
