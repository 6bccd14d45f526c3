package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	internaldump "github.com/serjche/Ceedling/internal/dump"
	pkgconfig "github.com/serjche/Ceedling/pkg/config"
	pkgdump "github.com/serjche/Ceedling/pkg/dump"
)

// NewDumpCommand constructs `ceedling config dump`.
func NewDumpCommand() *cobra.Command {
	return newDumpCommand(DefaultDeps())
}

func newDumpCommand(deps Deps) *cobra.Command {
	opts := &Options{}
	overrides := &pkgdump.Overrides{}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Assemble the project configuration and write it to a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDump(cmd, opts, *overrides, deps)
		},
	}
	bindFlags(cmd, opts)
	cmd.Flags().StringVar(&overrides.FilePath, "file", "", "Write the dump to this path")
	cmd.Flags().StringVar(&overrides.FileName, "file-name", "", "File name inside --dir (defaults to "+internaldump.DefaultFileName+")")
	cmd.Flags().StringVar(&overrides.Directory, "dir", "", "Directory for the dump (defaults to the build root)")
	return cmd
}

func runDump(cmd *cobra.Command, opts *Options, overrides pkgdump.Overrides, deps Deps) error {
	s, err := openSession(cmd, opts, deps)
	if err != nil {
		return err
	}
	metadata := s.metadata()
	logCommandStart(s.logger, stepDump, metadata)

	resolved, err := s.assembler.Assemble(cmd.Context(), s.raw)
	if err == nil {
		err = s.assembler.InsertRakePlugins()
	}
	if err != nil {
		logCommandFailure(s.logger, stepDump, metadata, err)
		return err
	}

	manager := pkgdump.NewManager(internaldump.NewResolver(buildRootDir(s.location.Path, resolved.BuildRoot())))
	path, err := manager.Write(pkgdump.Record{Project: s.location.Path, Resolved: resolved}, overrides)
	if err != nil {
		logCommandFailure(s.logger, stepDump, metadata, err)
		return err
	}
	metadata["dump"] = path

	if err := renderDumpResult(cmd, s.format, path, resolved.Len()); err != nil {
		return err
	}
	logCommandSuccess(s.logger, stepDump, metadata)
	return nil
}

func renderDumpResult(cmd *cobra.Command, format, path string, keys int) error {
	if format == pkgconfig.SummaryFormatJSON {
		encoded, err := json.Marshal(map[string]any{"path": path, "keys": keys})
		if err != nil {
			return fmt.Errorf("marshal dump result: %w", err)
		}
		return writeOutput(cmd, string(encoded))
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return err
}

// buildRootDir anchors a relative build root at the project file's directory.
func buildRootDir(projectPath, buildRoot string) string {
	if buildRoot == "" {
		return ""
	}
	root := filepath.FromSlash(buildRoot)
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(filepath.Dir(projectPath), root)
}
