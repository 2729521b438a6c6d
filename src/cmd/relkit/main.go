// Package main provides the relkit CLI: release-pipeline automation for
// TeamCity builds and project version files.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"relkit/src/config"
	"relkit/src/events"
	"relkit/src/logger"
	"relkit/src/teamcity"
)

// buildVersion is set at link time.
var buildVersion = "dev"

// app carries the state shared by all sub-commands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	tokenFile  string
	verbose    bool
	strictExit bool

	cfg *config.Config
	log *logger.ConsoleLogger
	pub events.Publisher
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		log:    logger.NewWriterLogger(stdout, stderr),
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relkit",
		Short: "relkit - release pipeline automation for TeamCity",
		Long: `relkit automates the release pipeline around a TeamCity server:

- pin and tag the build that produced a release artifact
- trigger a build and wait for it and its dependent builds
- download tagged artifacts and Python wheels
- validate versions and bump them in project metadata files

TeamCity commands read TEAMCITY_URL and the access token from the
environment, a config file, or --teamcity-access-token <file>.`,
		Version:       buildVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&a.tokenFile, "teamcity-access-token", "", "Path to a file holding the TeamCity access token")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug output")
	flags.BoolVar(&a.strictExit, "strict-exit", false, "Exit with status 1 when a command fails")

	rootCmd.AddCommand(
		newPinCmd(a),
		newTriggerCmd(a),
		newBuildNumberCmd(a),
		newPauseCmd(a, true),
		newPauseCmd(a, false),
		newBuildsCmd(a),
		newDownloadCmd(a),
		newDownloadWheelsCmd(a),
		newVersionCmd(a),
		newBumpCmd(a),
		newMCPCmd(a),
	)
	return rootCmd
}

// stdioProtocol marks commands whose stdout carries a wire protocol.
// Their log output, debug lines included, goes to stderr.
const stdioProtocol = "relkit/stdio-protocol"

// setup loads the configuration. It runs before every sub-command.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Annotations[stdioProtocol] != "" {
		a.log = logger.NewWriterLogger(a.stderr, a.stderr)
	}
	a.log.SetVerbose(a.verbose)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if a.tokenFile != "" {
		if err := cfg.ReadTokenFile(a.tokenFile); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.log.Debug("TeamCity server: %s", cfg.TeamCityURL)
	return nil
}

// client returns a TeamCity client; it fails when no token is configured.
func (a *app) client() (*teamcity.Client, error) {
	if err := a.cfg.RequireToken(); err != nil {
		return nil, err
	}
	return teamcity.NewClient(a.cfg.TeamCityURL, a.cfg.AccessToken), nil
}

// publisher returns the release event publisher, creating it on first use.
// Events go to Redpanda when brokers are configured and stay in-process otherwise.
func (a *app) publisher() events.Publisher {
	if a.pub != nil {
		return a.pub
	}
	if len(a.cfg.Brokers) > 0 {
		pub, err := events.NewRedpandaPublisher(a.cfg.Brokers, a.cfg.EventsTopic)
		if err == nil {
			a.log.Debug("Publishing release events to %s on %v", a.cfg.EventsTopic, a.cfg.Brokers)
			a.pub = pub
			return a.pub
		}
		a.log.Warn("Release events stay local: %v", err)
	}
	a.pub = events.NewInMemoryPublisher()
	return a.pub
}

func (a *app) close() {
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.log.Warn("Failed to close event publisher: %v", err)
		}
		a.pub = nil
	}
}

// execute runs the CLI and returns the process exit code.
// Failures print "Error: <message>" on stderr. The exit code stays 0 unless
// --strict-exit is set, so callers that parse stderr keep working.
func execute(args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	a.close()
	if err == nil {
		return 0
	}

	fmt.Fprintln(stderr, "Error:", teamcity.WrapError(err))
	if a.strictExit {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
