// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package command implements the CLI verbs of ozi.
package command

import (
	"github.com/hashicorp/cli"
)

// Version is the version of ozi.
const Version = "0.1.0"

// Commands returns the factories for every CLI verb.
func Commands(ui cli.Ui) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"run": func() (cli.Command, error) {
			return &RunCommand{Ui: ui}, nil
		},
		"list": func() (cli.Command, error) {
			return &ListCommand{Ui: ui}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{Ui: ui}, nil
		},
	}
}
