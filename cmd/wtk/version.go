package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"sigs.k8s.io/release-utils/version"
)

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "print build and version information",
	Action: func(c *cli.Context) error {
		info := version.GetVersionInfo()
		fmt.Fprintln(c.App.Writer, info.String())
		return nil
	},
}
