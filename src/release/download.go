package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"relkit/src/logger"
	"relkit/src/teamcity"
	"relkit/src/version"
)

// DownloadRequest identifies an artifact of the build of BuildConfigID on
// Branch that carries Tag.
type DownloadRequest struct {
	Branch        string
	BuildConfigID string
	Tag           string
	ArtifactPath  string
	ArtifactName  string
	// Destination is the directory the artifact is written to.
	Destination string
}

// WheelPlatform maps a TeamCity platform name to a wheel platform tag.
type WheelPlatform struct {
	Name string
	Arch string
}

// DefaultWheelPlatforms are the platforms wheels are built for on TeamCity.
var DefaultWheelPlatforms = []WheelPlatform{
	{Name: "Windows", Arch: "win_amd64"},
	{Name: "Linux", Arch: "manylinux_2_17_x86_64.manylinux2014_x86_64"},
}

// WheelRequest describes the Python wheels of a release.
type WheelRequest struct {
	Version string
	// Package is the distribution name, e.g. meshkernel.
	Package string
	// ConfigPrefix prefixes the per-platform configuration id:
	// <prefix>_<Platform>_BuildPythonWheel.
	ConfigPrefix string
	Platforms    []WheelPlatform
	Destination  string
}

// WheelName is the file name of the wheel for a version and platform.
func WheelName(pkg, ver string, p WheelPlatform) string {
	return fmt.Sprintf("%s-%s-py3-none-%s.whl", pkg, ver, p.Arch)
}

// WheelConfigID is the build configuration producing wheels for a platform.
func WheelConfigID(prefix string, p WheelPlatform) string {
	return fmt.Sprintf("%s_%s_BuildPythonWheel", prefix, p.Name)
}

// Downloader fetches release artifacts to disk.
type Downloader struct {
	client *teamcity.Client
	log    logger.Logger
}

// NewDownloader creates a Downloader.
func NewDownloader(client *teamcity.Client, log logger.Logger) *Downloader {
	return &Downloader{client: client, log: log}
}

// DownloadByTag fetches the artifact through the server-side tag alias.
// Returns the written file path.
func (d *Downloader) DownloadByTag(ctx context.Context, req DownloadRequest) (string, error) {
	u := d.client.TagDownloadURL(req.BuildConfigID, req.Tag, req.ArtifactPath, req.ArtifactName, req.Branch)
	return d.fetch(ctx, u, req.Destination, req.ArtifactName)
}

// DownloadLatest resolves the newest build carrying the tag first and then
// fetches the artifact of that build. Returns the written file path.
func (d *Downloader) DownloadLatest(ctx context.Context, req DownloadRequest) (string, error) {
	loc := teamcity.BranchConfig(req.Branch, req.BuildConfigID).
		With("tags", req.Tag).
		With("count", "1")

	builds, err := d.client.ListBuilds(ctx, loc)
	if err != nil {
		return "", fmt.Errorf("failed to get build ID: %w", err)
	}
	if len(builds) == 0 {
		return "", fmt.Errorf("%w: no build of %s on %s tagged %q", teamcity.ErrNotFound, req.BuildConfigID, req.Branch, req.Tag)
	}

	u := d.client.BuildDownloadURL(req.BuildConfigID, builds[0].ID, req.ArtifactPath, req.ArtifactName)
	return d.fetch(ctx, u, req.Destination, req.ArtifactName)
}

// DownloadWheels fetches the wheel of every platform for a release version.
func (d *Downloader) DownloadWheels(ctx context.Context, req WheelRequest) ([]string, error) {
	if err := version.CheckSemantic(req.Version); err != nil {
		return nil, err
	}
	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = DefaultWheelPlatforms
	}

	var paths []string
	for _, p := range platforms {
		path, err := d.DownloadByTag(ctx, DownloadRequest{
			Branch:        version.ReleaseBranch(req.Version),
			BuildConfigID: WheelConfigID(req.ConfigPrefix, p),
			Tag:           version.Tag(req.Version),
			ArtifactName:  WheelName(req.Package, req.Version, p),
			Destination:   req.Destination,
		})
		if err != nil {
			return paths, fmt.Errorf("failed to download %s wheel: %w", p.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (d *Downloader) fetch(ctx context.Context, u, dir, name string) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, err := d.client.Stream(ctx, u, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			d.log.Warn("Failed to remove partial download %s: %v", path, rmErr)
		}
		return "", err
	}

	d.log.Info("Artifact %s downloaded successfully to %s (%d bytes)", name, dir, n)
	return path, nil
}
