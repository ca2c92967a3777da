// SPDX-License-Identifier: AGPL-3.0-or-later

/*
wheelprobe - black-box validation harness for the NTmusic native audio module.

It locates the packaged platform artifact, unpacks it, loads the module and
runs a fixed battery of functional probes against its exported operations,
emitting a JSON report on stdout.
*/

package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/DerstedtCasper/NTmusic/cmd/wheelprobe/internal/clierr"
	"github.com/DerstedtCasper/NTmusic/internal/nativemod"
	"github.com/DerstedtCasper/NTmusic/internal/probe"
	"github.com/DerstedtCasper/NTmusic/internal/report"
	"github.com/DerstedtCasper/NTmusic/internal/wheel"
)

// Exit codes of the probe run. Probe outcomes never affect the exit code:
// once the module is loaded, failures are data in the report.
const (
	exitNotFound   = 2
	exitLoadFailed = 3
)

type probeOptions struct {
	wheelPath      string
	extractDir     string
	keep           bool
	noTests        bool
	requireNumeric bool
	jsonPath       string
	prefsPath      string
}

// NewRootCmd constructs the wheelprobe root Cobra command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("NTMUSIC_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	var opts probeOptions

	cmd := &cobra.Command{
		Use:           "wheelprobe",
		Short:         "Probe the packaged NTmusic native audio module",
		Long:          "wheelprobe locates the platform wheel for the native audio module, unpacks and loads it, and smoke-tests its exported operations. The JSON report goes to stdout.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.wheelPath, "wheel", "", "wheel path for rust_audio_resampler")
	cmd.Flags().StringVar(&opts.extractDir, "extract-dir", "", "extract into this directory and keep it")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "keep extracted files")
	cmd.Flags().BoolVar(&opts.noTests, "no-tests", false, "skip smoke tests")
	cmd.Flags().BoolVar(&opts.requireNumeric, "require-numeric", false, "fail instead of skip when input synthesis is unavailable")
	cmd.Flags().StringVar(&opts.jsonPath, "json", "", "write the JSON report to this file as well")
	cmd.Flags().StringVar(&opts.prefsPath, "prefs", "probe.yaml", "artifact resolution preferences file")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the wheelprobe version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wheelprobe version %s\n", version)
		},
	})

	return cmd
}

func runProbe(cmd *cobra.Command, opts probeOptions) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "wheelprobe",
	})

	locOpts := wheel.LocateOptions{Explicit: opts.wheelPath}
	prefs, err := wheel.LoadPreferences(opts.prefsPath)
	if err != nil {
		return err
	}
	prefs.Apply(&locOpts)

	cand, err := wheel.Locate(locOpts)
	if err != nil {
		if errors.Is(err, wheel.ErrNotFound) {
			return clierr.New(exitNotFound,
				"wheel not found; use --wheel or set "+wheel.EnvWheelPath)
		}
		return err
	}
	logger.Info("located artifact", "path", cand.Path, "tag", cand.Tag)

	workDir, err := wheel.Extract(cand.Path, opts.extractDir)
	if err != nil {
		return err
	}
	if !opts.keep && opts.extractDir == "" {
		defer func() { _ = os.RemoveAll(workDir) }()
	}
	logger.Info("extracted artifact", "dir", workDir)

	rep := report.New(cand.Path, workDir)

	mod, err := nativemod.Load(nativemod.LoadContext{Dir: workDir})
	if err != nil {
		rep.Error = "import failed: " + err.Error()
		if emitErr := emit(cmd, rep, opts.jsonPath); emitErr != nil {
			return emitErr
		}
		return clierr.Wrap(exitLoadFailed, "module load failed", err)
	}
	defer func() { _ = mod.Close() }()

	rep.Exports = append(rep.Exports, mod.Exports()...)

	if !opts.noTests {
		synth, synthErr := probe.NewSynth()
		if synthErr != nil {
			logger.Warn("input synthesis unavailable", "err", synthErr)
			rep.Tests = []probe.Result{probe.NumericPlaceholder(synthErr, opts.requireNumeric)}
		} else {
			rep.Tests = probe.NewSuite().Run(mod, synth)
		}
	}

	if err := emit(cmd, rep, opts.jsonPath); err != nil {
		return err
	}

	counts := rep.Summary()
	logger.Info("probe run complete",
		"passed", counts[probe.StatusPassed],
		"warnings", counts[probe.StatusWarning],
		"failed", counts[probe.StatusFailed],
		"missing", counts[probe.StatusMissing],
		"skipped", counts[probe.StatusSkipped],
	)
	return nil
}

// emit prints the report to stdout and, when requested, writes the same
// bytes verbatim to a file.
func emit(cmd *cobra.Command, rep *report.Report, jsonPath string) error {
	data, err := rep.Render()
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}
	if jsonPath != "" {
		return os.WriteFile(jsonPath, data, 0o644)
	}
	return nil
}
