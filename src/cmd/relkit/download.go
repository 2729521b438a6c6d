package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relkit/src/release"
)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		req    release.DownloadRequest
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download an artifact of the tagged build",
		Long: `Downloads an artifact of the build of the configuration on the branch that
carries the tag. By default the server resolves the tag; --latest first looks
up the newest build carrying the tag and downloads from that build.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			d := release.NewDownloader(client, a.log)

			var path string
			if latest {
				path, err = d.DownloadLatest(cmd.Context(), req)
			} else {
				path, err = d.DownloadByTag(cmd.Context(), req)
			}
			if err != nil {
				return fmt.Errorf("failed to download %s: %w", req.ArtifactName, err)
			}
			fmt.Fprintln(a.stdout, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Branch, "branch-name", "", "Branch of the build")
	cmd.Flags().StringVar(&req.BuildConfigID, "build-config-id", "", "TeamCity build configuration id")
	cmd.Flags().StringVar(&req.Tag, "tag", "", "Tag of the build")
	cmd.Flags().StringVar(&req.ArtifactName, "artifact-name", "", "Artifact file name")
	cmd.Flags().StringVar(&req.ArtifactPath, "artifact-path", "", "Directory of the artifact inside the build artifacts")
	cmd.Flags().StringVar(&req.Destination, "destination", ".", "Directory to write the artifact to")
	cmd.Flags().BoolVar(&latest, "latest", false, "Resolve the newest tagged build before downloading")
	markRequired(cmd, "branch-name", "build-config-id", "tag", "artifact-name")
	return cmd
}

func newDownloadWheelsCmd(a *app) *cobra.Command {
	var req release.WheelRequest

	cmd := &cobra.Command{
		Use:   "download-wheels",
		Short: "Download the Windows and Linux Python wheels of a release",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}

			paths, err := release.NewDownloader(client, a.log).DownloadWheels(cmd.Context(), req)
			for _, p := range paths {
				fmt.Fprintln(a.stdout, p)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&req.Version, "version", "", "Release version, e.g. 4.1.0")
	cmd.Flags().StringVar(&req.Package, "package", "meshkernel", "Python distribution name")
	cmd.Flags().StringVar(&req.ConfigPrefix, "config-prefix", "GridEditor_MeshKernelPy", "Prefix of the per-platform wheel build configurations")
	cmd.Flags().StringVar(&req.Destination, "destination", ".", "Directory to write the wheels to")
	markRequired(cmd, "version")
	return cmd
}
