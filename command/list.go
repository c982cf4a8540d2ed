// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"fmt"

	"github.com/hashicorp/cli"

	"github.com/hashicorp/ozi/testutil"
)

// ListCommand prints the available programs.
type ListCommand struct {
	Ui cli.Ui
}

func (c *ListCommand) Help() string {
	return "Usage: ozi list\n\n  Lists the available kernel-language programs."
}

func (c *ListCommand) Synopsis() string {
	return "List the available programs"
}

func (c *ListCommand) Run(args []string) int {
	for _, name := range testutil.Names() {
		p, _ := testutil.Get(name)
		c.Ui.Output(fmt.Sprintf("%-20s %s", name, p.Desc))
	}
	return 0
}
