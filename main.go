// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package main

import (
	"fmt"
	"os"

	"github.com/gaps-tof/liftof-cc/cmd"
	"github.com/gaps-tof/liftof-cc/internal/config"
	"github.com/gaps-tof/liftof-cc/internal/sdk"
	"github.com/USA-RedDragon/configulator"
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := cmd.NewCommand(sdk.Version, sdk.GitCommit)

	c := configulator.New[config.Config]()
	if err := c.Cobra(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure command: %v\n", err)
		return 1
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}
