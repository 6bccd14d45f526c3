package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/serjche/Ceedling/internal/plugins"
	pkgconfig "github.com/serjche/Ceedling/pkg/config"
)

// NewPluginsCommand constructs `ceedling config plugins`.
func NewPluginsCommand() *cobra.Command {
	return newPluginsCommand(DefaultDeps())
}

func newPluginsCommand(deps Deps) *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the enabled plugins by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlugins(cmd, opts, deps)
		},
	}
	bindFlags(cmd, opts)
	return cmd
}

type pluginView struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Path     string `json:"path"`
}

func runPlugins(cmd *cobra.Command, opts *Options, deps Deps) error {
	s, err := openSession(cmd, opts, deps)
	if err != nil {
		return err
	}
	metadata := s.metadata()
	logCommandStart(s.logger, stepPlugins, metadata)

	_, set, _, err := s.assembler.Prepare(s.raw)
	if err != nil {
		logCommandFailure(s.logger, stepPlugins, metadata, err)
		return err
	}

	rendered, err := formatPlugins(set, s.format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, rendered); err != nil {
		return err
	}
	logCommandSuccess(s.logger, stepPlugins, metadata)
	return nil
}

func formatPlugins(set plugins.Set, format string) (string, error) {
	if format == pkgconfig.SummaryFormatJSON {
		views := make([]pluginView, 0, len(set.Plugins))
		for _, p := range set.Plugins {
			views = append(views, pluginView{Name: p.Name, Category: string(p.Category), Path: p.Path})
		}
		encoded, err := json.MarshalIndent(map[string]any{"count": len(views), "plugins": views}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal plugins: %w", err)
		}
		return string(encoded), nil
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Plugins:\t%d\n", len(set.Plugins))
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Name\tCategory\tPath")
	for _, p := range set.Plugins {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Category, p.Path)
	}
	if err := tw.Flush(); err != nil {
		return "", fmt.Errorf("flush plugins: %w", err)
	}
	return buf.String(), nil
}
