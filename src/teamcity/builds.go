package teamcity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Locator is a TeamCity build locator: comma separated key:value dimensions.
type Locator []string

// NewLocator starts an empty locator.
func NewLocator() Locator {
	return Locator{}
}

// With appends a dimension. Empty values are skipped.
func (l Locator) With(key, value string) Locator {
	if value == "" {
		return l
	}
	return append(l, key+":"+value)
}

func (l Locator) String() string {
	return strings.Join(l, ",")
}

// BranchConfig is the locator for builds of a configuration on a branch.
func BranchConfig(branch, configID string) Locator {
	return NewLocator().With("branch", branch).With("buildType", configID)
}

// DependentsOf is the locator for builds snapshot-dependent on buildID.
func DependentsOf(buildID int64) Locator {
	return NewLocator().With("snapshotDependency", fmt.Sprintf("(from:(id:%d))", buildID))
}

// ListBuilds returns builds matching the locator in server order.
func (c *Client) ListBuilds(ctx context.Context, loc Locator) ([]Build, error) {
	u := c.BuildsURL()
	if len(loc) > 0 {
		u += "?" + url.Values{"locator": {loc.String()}}.Encode()
	}

	resp, err := c.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}

	var list BuildList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}
	return list.Build, nil
}

// ListDependentBuilds returns the builds snapshot-dependent on buildID.
func (c *Client) ListDependentBuilds(ctx context.Context, buildID int64) ([]Build, error) {
	return c.ListBuilds(ctx, DependentsOf(buildID))
}

// GetBuild fetches the full detail record of a build.
func (c *Client) GetBuild(ctx context.Context, id int64) (*Build, error) {
	resp, err := c.Get(ctx, c.BuildURL(id), nil)
	if err != nil {
		return nil, err
	}

	var build Build
	if err := resp.Decode(&build); err != nil {
		return nil, err
	}
	return &build, nil
}

// ListArtifacts lists the artifact files of a build under path.
// An empty path lists the artifact root.
func (c *Client) ListArtifacts(ctx context.Context, id int64, path string) ([]File, error) {
	u := c.BuildURL(id) + "/artifacts/children"
	if p := strings.Trim(path, "/"); p != "" {
		u += "/" + p
	}

	resp, err := c.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}

	var files Files
	if err := resp.Decode(&files); err != nil {
		return nil, err
	}
	return files.File, nil
}

// Pin marks a build as protected from cleanup. Pinning twice is harmless.
func (c *Client) Pin(ctx context.Context, id int64) error {
	_, err := c.Put(ctx, c.BuildURL(id)+"/pin/", nil, nil)
	return err
}

// Unpin removes the pin from a build.
func (c *Client) Unpin(ctx context.Context, id int64) error {
	_, err := c.Delete(ctx, c.BuildURL(id)+"/pin/", nil)
	return err
}

// SetTags replaces the full tag set of a build.
func (c *Client) SetTags(ctx context.Context, id int64, names []string) error {
	_, err := c.Put(ctx, c.BuildURL(id)+"/tags/", nil, NewTags(names))
	return err
}

// QueueBuild enqueues a build of configID on branch.
func (c *Client) QueueBuild(ctx context.Context, configID, branch string) (*QueuedBuild, error) {
	resp, err := c.Post(ctx, c.QueueURL(), TriggerRequest{
		BuildType:  BuildTypeRef{ID: configID},
		BranchName: branch,
	})
	if err != nil {
		return nil, err
	}

	var queued QueuedBuild
	if err := resp.Decode(&queued); err != nil {
		return nil, err
	}
	return &queued, nil
}

// SetPaused pauses or resumes a build configuration.
func (c *Client) SetPaused(ctx context.Context, configID string, paused bool) error {
	headers := map[string]string{"Content-Type": "text/plain"}
	_, err := c.Do(ctx, http.MethodPut, c.BuildTypeURL(configID)+"/paused", headers, fmt.Sprintf("%t", paused))
	return err
}

// TagDownloadURL addresses an artifact through the build tag alias
// (<config>/<tag>.tcbuildtag/...), resolved by the server on branch.
func (c *Client) TagDownloadURL(configID, tag, path, name, branch string) string {
	u := fmt.Sprintf("%s/%s/%s.tcbuildtag/%s", c.DownloadsURL(), configID, tag, joinArtifactPath(path, name))
	if branch != "" {
		u += "?" + url.Values{"branch": {branch}}.Encode()
	}
	return u
}

// BuildDownloadURL addresses an artifact of a specific build.
func (c *Client) BuildDownloadURL(configID string, id int64, path, name string) string {
	return fmt.Sprintf("%s/%s/%d:id/%s", c.DownloadsURL(), configID, id, joinArtifactPath(path, name))
}

func joinArtifactPath(path, name string) string {
	if p := strings.Trim(path, "/"); p != "" {
		return p + "/" + name
	}
	return name
}
