package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"relkit/src/logger"
	"relkit/src/teamcity/teamcitytest"
)

func newTestServer(t *testing.T) (*Server, *teamcitytest.Server) {
	t.Helper()
	tc := teamcitytest.NewServer("test-token")
	t.Cleanup(tc.Close)
	return NewServer(tc.Client(), &logger.SilentLogger{}, "test"), tc
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func decodeLookup(t *testing.T, result *mcp.CallToolResult) LookupResult {
	t.Helper()
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	var out LookupResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return out
}

func TestFindTaggedBuildTool(t *testing.T) {
	srv, tc := newTestServer(t)
	b := tc.AddBuild(&teamcitytest.Build{BuildTypeID: "X", Branch: "main", Tags: []string{"latest"}, Pinned: true, Number: "12"})

	result, err := srv.handleFindTaggedBuild(context.Background(), callRequest(map[string]any{
		"branch": "main", "build_config_id": "X", "tag": "latest",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}

	out := decodeLookup(t, result)
	if !out.Found || out.Build == nil || out.Build.ID != b.ID {
		t.Errorf("result = %+v", out)
	}
	if len(out.Build.Tags) != 1 || out.Build.Tags[0] != "latest" {
		t.Errorf("tags = %v", out.Build.Tags)
	}
}

func TestFindTaggedBuildTool_NotFoundIsNotAnError(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleFindTaggedBuild(context.Background(), callRequest(map[string]any{
		"branch": "main", "build_config_id": "X", "tag": "missing",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if out := decodeLookup(t, result); out.Found || out.Reason == "" {
		t.Errorf("result = %+v, want not found with a reason", out)
	}
}

func TestFindTaggedBuildTool_MissingParameter(t *testing.T) {
	srv, _ := newTestServer(t)

	result, _ := srv.handleFindTaggedBuild(context.Background(), callRequest(map[string]any{"branch": "main"}))
	if !result.IsError {
		t.Fatal("expected a tool error")
	}
	if text := resultText(t, result); !strings.Contains(text, "build_config_id") {
		t.Errorf("error = %q, want it to name the missing parameter", text)
	}
}

func TestFindBuildWithArtifactTool(t *testing.T) {
	srv, tc := newTestServer(t)
	tc.AddBuild(&teamcitytest.Build{BuildTypeID: "X", Branch: "main", Artifacts: map[string][]string{"": {"a.zip"}}})
	want := tc.AddBuild(&teamcitytest.Build{BuildTypeID: "X", Branch: "main", Artifacts: map[string][]string{"dist": {"b.zip"}}})

	result, err := srv.handleFindBuildWithArtifact(context.Background(), callRequest(map[string]any{
		"branch": "main", "build_config_id": "X", "artifact_name": "b.zip", "artifact_path": "dist",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if out := decodeLookup(t, result); !out.Found || out.Build.ID != want.ID {
		t.Errorf("result = %+v", out)
	}
}

func TestGetBuildNumberTool(t *testing.T) {
	srv, tc := newTestServer(t)
	tc.AddBuild(&teamcitytest.Build{BuildTypeID: "X", Branch: "release/v2.0.0", Tags: []string{"v2.0.0"}, Number: "88+deadbee"})

	result, err := srv.handleGetBuildNumber(context.Background(), callRequest(map[string]any{
		"build_config_id": "X", "version": "2.0.0",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if out := decodeLookup(t, result); !out.Found || out.Number != "88" {
		t.Errorf("result = %+v, want number 88", out)
	}

	result, _ = srv.handleGetBuildNumber(context.Background(), callRequest(map[string]any{
		"build_config_id": "X", "version": "2.0",
	}))
	if !result.IsError {
		t.Error("expected a tool error for an invalid version")
	}
}

func TestGetBuildNumberTool_ServerErrorIsToolError(t *testing.T) {
	srv, tc := newTestServer(t)
	tc.Fail("/app/rest/builds", 500)

	result, err := srv.handleGetBuildNumber(context.Background(), callRequest(map[string]any{
		"build_config_id": "X", "version": "2.0.0",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !result.IsError {
		t.Errorf("expected a tool error, got %s", resultText(t, result))
	}
}

func TestCheckVersionTool(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		wantValid bool
		wantTag   string
	}{
		{"semantic", map[string]any{"version": "1.2.3"}, false, true, "v1.2.3"},
		{"semantic rejects build", map[string]any{"version": "1.2.3.4"}, false, false, ""},
		{"extended", map[string]any{"version": "1.2.3.4-rc1", "kind": "extended"}, false, true, "v1.2.3.4-rc1"},
		{"unknown kind", map[string]any{"version": "1.2.3", "kind": "calendar"}, true, false, ""},
		{"missing version", map[string]any{}, true, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleCheckVersion(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler error = %v", err)
			}
			if result.IsError != tt.wantError {
				t.Fatalf("IsError = %v, want %v (%s)", result.IsError, tt.wantError, resultText(t, result))
			}
			if tt.wantError {
				return
			}
			var check VersionCheck
			if err := json.Unmarshal([]byte(resultText(t, result)), &check); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if check.Valid != tt.wantValid || check.Tag != tt.wantTag {
				t.Errorf("check = %+v", check)
			}
		})
	}
}
