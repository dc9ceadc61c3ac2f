// sm-action retrieves secrets from Bitwarden Secrets Manager and publishes
// them to a GitHub Actions job.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bitwarden/sm-action/clicommand"
	"github.com/bitwarden/sm-action/version"
	"github.com/urfave/cli"
)

func printVersion(c *cli.Context) {
	fmt.Fprintf(c.App.Writer, "%v version %v\n", c.App.Name, c.App.Version)
}

func newApp(stdout, stderr io.Writer) *cli.App {
	cli.VersionPrinter = printVersion

	app := cli.NewApp()
	app.Name = "sm-action"
	app.Usage = "Retrieve secrets from Bitwarden Secrets Manager in GitHub Actions"
	app.Description = clicommand.Description
	app.Version = version.FullVersion()
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = clicommand.GlobalFlags()
	app.Action = clicommand.RunAction
	return app
}

func main() {
	app := newApp(os.Stdout, os.Stderr)
	os.Exit(clicommand.PrintMessageAndReturnExitCode(os.Stderr, app.Run(os.Args)))
}
