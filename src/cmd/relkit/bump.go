package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"relkit/src/bump"
	"relkit/src/version"
)

func newVersionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Validate and extract versions",
	}

	var extended bool
	checkCmd := &cobra.Command{
		Use:   "check <version>",
		Short: "Validate a version string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := args[0]
			check := version.CheckSemantic
			if extended {
				check = version.CheckExtended
			}
			if err := check(v); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, v)
			return nil
		},
	}
	checkCmd.Flags().BoolVar(&extended, "extended", false, "Accept an optional .build number and -modifier")

	var file string
	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the version of a nuspec file",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bump.ExtractNuspecVersion(file)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, v)
			return nil
		},
	}
	extractCmd.Flags().StringVarP(&file, "file", "f", "", "Path to the nuspec file")
	markRequired(extractCmd, "file")

	cmd.AddCommand(checkCmd, extractCmd)
	return cmd
}

func newBumpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bump",
		Short: "Rewrite version numbers in project metadata files",
	}
	cmd.AddCommand(
		newBumpNuspecCmd(a),
		newBumpPropsCmd(a),
		newBumpPackagesCmd(a),
		newBumpWixCmd(a),
		newBumpLineCmd(a),
	)
	return cmd
}

func (a *app) reportChange(path string, c *bump.Change) {
	a.log.Info("%s: %s %s -> %s", path, c.Name, c.From, c.To)
}

func newBumpNuspecCmd(a *app) *cobra.Command {
	var file, to string

	cmd := &cobra.Command{
		Use:   "nuspec",
		Short: "Set metadata/version of a nuspec file",
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := bump.NuspecVersion(file, to)
			if err != nil {
				return err
			}
			a.reportChange(file, change)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the nuspec file")
	cmd.Flags().StringVar(&to, "to-version", "", "New semantic version")
	markRequired(cmd, "file", "to-version")
	return cmd
}

func newBumpPropsCmd(a *app) *cobra.Command {
	var file, element, to string

	cmd := &cobra.Command{
		Use:   "props",
		Short: "Set a PropertyGroup element of an MSBuild file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := version.CheckSemantic(to); err != nil {
				return err
			}
			change, err := bump.PropsElement(file, element, to)
			if err != nil {
				return err
			}
			a.reportChange(file, change)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the .props or .wixproj file")
	cmd.Flags().StringVar(&element, "element", "", "Element below PropertyGroup, e.g. ReleaseVersion")
	cmd.Flags().StringVar(&to, "to-version", "", "New semantic version")
	markRequired(cmd, "file", "element", "to-version")
	return cmd
}

func newBumpPackagesCmd(a *app) *cobra.Command {
	var file, packages string

	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Set PackageVersion entries of a Directory.Packages.props file",
		Long: `Sets the Version attribute of ItemGroup/PackageVersion entries.
--packages takes whitespace separated name:version pairs, e.g.
"Deltares.MeshKernel:4.1.0 Newtonsoft.Json:13.0.3.1-rc1".
Packages missing from the file are skipped with a warning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := parsePackages(packages)
			if err != nil {
				return err
			}
			changes, err := bump.PackageVersions(file, versions, a.log)
			if err != nil {
				return err
			}
			a.log.Debug("%d package versions updated", len(changes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the Directory.Packages.props file")
	cmd.Flags().StringVar(&packages, "packages", "", "Whitespace separated name:version pairs")
	markRequired(cmd, "file", "packages")
	return cmd
}

// parsePackages reads "name:version name:version" into a map.
func parsePackages(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Fields(s) {
		name, v, ok := strings.Cut(pair, ":")
		if !ok || name == "" || v == "" {
			return nil, fmt.Errorf("invalid package %q: expected name:version", pair)
		}
		out[name] = v
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no packages given")
	}
	return out, nil
}

func newBumpWixCmd(a *app) *cobra.Command {
	var (
		file                   string
		release, publicRelease string
		extra                  []string
	)

	cmd := &cobra.Command{
		Use:   "wix",
		Short: "Set String entries of a WiX localisation file",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string)
			if release != "" {
				if err := version.CheckSemantic(release); err != nil {
					return err
				}
				values["ReleaseVersion"] = release
			}
			if publicRelease != "" {
				values["PublicReleaseVersion"] = publicRelease
			}
			for _, kv := range extra {
				id, v, ok := strings.Cut(kv, "=")
				if !ok || id == "" {
					return fmt.Errorf("invalid --set %q: expected Id=value", kv)
				}
				values[id] = v
			}
			if len(values) == 0 {
				return fmt.Errorf("nothing to set: pass --release-version, --public-release-version or --set")
			}

			changes, err := bump.WixStrings(file, values)
			if err != nil {
				return err
			}
			for i := range changes {
				a.reportChange(file, &changes[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the .wxl file")
	cmd.Flags().StringVar(&release, "release-version", "", "New ReleaseVersion (semantic version)")
	cmd.Flags().StringVar(&publicRelease, "public-release-version", "", "New PublicReleaseVersion")
	cmd.Flags().StringArrayVar(&extra, "set", nil, "Additional Id=value pairs")
	markRequired(cmd, "file")
	return cmd
}

func newBumpLineCmd(a *app) *cobra.Command {
	var file, prefix, replacement, cmakeVar, pythonVar, to string

	cmd := &cobra.Command{
		Use:   "line",
		Short: "Replace lines starting with a prefix",
		Long: `Replaces every line of a text file that starts with a prefix.

Either give --prefix and --replacement, or --to-version together with
--cmake-var NAME (set(NAME <version>)) or --python-var NAME (NAME = "<version>").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case cmakeVar != "" || pythonVar != "":
				if err := version.CheckSemantic(to); err != nil {
					return err
				}
				if cmakeVar != "" {
					prefix, replacement = bump.CMakeSet(cmakeVar, to)
				} else {
					prefix, replacement = bump.PythonAssign(pythonVar, to)
				}
			case prefix == "" || replacement == "":
				return fmt.Errorf("--prefix and --replacement are required without --cmake-var or --python-var")
			}

			n, err := bump.LinePrefix(file, prefix, replacement)
			if err != nil {
				return err
			}
			if n == 0 {
				a.log.Warn("No line of %s starts with %q", file, prefix)
				return nil
			}
			a.log.Info("%s: %d line(s) set to %s", file, n, replacement)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the text file")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Line prefix to match")
	cmd.Flags().StringVar(&replacement, "replacement", "", "Replacement line")
	cmd.Flags().StringVar(&cmakeVar, "cmake-var", "", "CMake variable holding the version")
	cmd.Flags().StringVar(&pythonVar, "python-var", "", "Python variable holding the version")
	cmd.Flags().StringVar(&to, "to-version", "", "New semantic version")
	cmd.MarkFlagsMutuallyExclusive("cmake-var", "python-var")
	markRequired(cmd, "file")
	return cmd
}
