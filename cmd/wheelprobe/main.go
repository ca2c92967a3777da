// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/DerstedtCasper/NTmusic/cmd/wheelprobe/commands"
	"github.com/DerstedtCasper/NTmusic/cmd/wheelprobe/internal/clierr"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(clierr.ExitCodeOf(err))
	}
}
