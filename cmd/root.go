package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates any failure, including a missing Doodba CRD
	// at startup.
	ExitCodeError = 1
)

// versionTemplate is shared by --version and the version command.
const versionTemplate = `{{printf "doodba-operator version %s\n" .Version}}`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "doodba-operator",
	Short: "Run Odoo installations described by Doodba resources",
	Long: `doodba-operator reconciles Doodba custom resources into the Kubernetes
objects an Odoo installation needs: configuration, file storage, one
Deployment and Service per instance, and the Jobs that initialize or
migrate the database before instances are started or upgraded.`,
	SilenceUsage: true,
}

// SetVersion sets the version reported by --version and the version command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a non-zero code on failure.
func Execute() {
	rootCmd.SetVersionTemplate(versionTemplate)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCRDCmd())
	rootCmd.AddCommand(newStatusCmd())
}
