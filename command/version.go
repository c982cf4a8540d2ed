// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"github.com/hashicorp/cli"
)

// VersionCommand prints the ozi version.
type VersionCommand struct {
	Ui cli.Ui
}

func (c *VersionCommand) Help() string {
	return "Usage: ozi version"
}

func (c *VersionCommand) Synopsis() string {
	return "Print the ozi version"
}

func (c *VersionCommand) Run(args []string) int {
	c.Ui.Output("ozi v" + Version)
	return 0
}
