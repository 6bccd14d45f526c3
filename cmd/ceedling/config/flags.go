package config

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/serjche/Ceedling/pkg/assembler"
	pkgconfig "github.com/serjche/Ceedling/pkg/config"
)

const outputAuto = "auto"

// ErrUnsupportedOutput is returned for an --output value other than text, json or auto.
var ErrUnsupportedOutput = errors.New("unsupported output format")

// Options captures flags shared by every config subcommand.
type Options struct {
	ProjectPath string
	Verbosity   VerbosityFlag
	Output      string
}

var _ pflag.Value = (*VerbosityFlag)(nil)

// VerbosityFlag is a pflag.Value accepting levels 0..5. An unset flag leaves
// the project's own verbosity untouched.
type VerbosityFlag struct {
	level int
	set   bool
}

// Level reports the parsed level and whether the flag was given.
func (v *VerbosityFlag) Level() (int, bool) { return v.level, v.set }

func (v *VerbosityFlag) String() string {
	if !v.set {
		return ""
	}
	return strconv.Itoa(v.level)
}

// Set parses and records a level.
func (v *VerbosityFlag) Set(s string) error {
	level, err := assembler.ParseVerbosity(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	v.level, v.set = level, true
	return nil
}

// Type names the flag value in usage output.
func (*VerbosityFlag) Type() string { return "level" }

func bindFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVar(&opts.ProjectPath, "project", "", "Project file (defaults to $CEEDLING_PROJECT or ./project.yml)")
	cmd.Flags().Var(&opts.Verbosity, "verbosity", "Verbosity 0 (silent) to 5 (debug); 4 and above emit structured logs to stderr")
	cmd.Flags().StringVar(&opts.Output, "output", outputAuto, "Output format: text, json or auto")
}

// resolveOutput maps auto to text on a terminal and json otherwise.
func resolveOutput(format string, w io.Writer, isTerminal func(int) bool) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", outputAuto:
		if f, ok := w.(interface{ Fd() uintptr }); ok && isTerminal != nil && isTerminal(int(f.Fd())) {
			return pkgconfig.SummaryFormatText, nil
		}
		return pkgconfig.SummaryFormatJSON, nil
	case pkgconfig.SummaryFormatText:
		return pkgconfig.SummaryFormatText, nil
	case pkgconfig.SummaryFormatJSON:
		return pkgconfig.SummaryFormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOutput, format)
	}
}
