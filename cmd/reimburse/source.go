package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/reimbursement-engine/internal/pipeline"
	"github.com/danielpatrickdp/reimbursement-engine/internal/snapshot"
)

// sourceFlags selects where a command takes its parameters from.
type sourceFlags struct {
	snapshotPath string
	active       bool
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.snapshotPath, "snapshot", "", "Load parameters from a snapshot JSON file")
	cmd.Flags().BoolVar(&s.active, "active", false, "Load parameters from the active version in the database")
	cmd.MarkFlagsMutuallyExclusive("snapshot", "active")
}

// load builds the configured pipeline and overlays the selected parameters.
// It returns a short description of where the parameters came from.
func (s *sourceFlags) load(a *app) (*pipeline.Pipeline, string, error) {
	p, err := a.cfg.BuildPipeline()
	if err != nil {
		return nil, "", err
	}
	source := "preset " + a.cfg.Pipeline.Preset

	switch {
	case s.snapshotPath != "":
		st, err := snapshot.LoadFile(s.snapshotPath)
		if err != nil {
			return nil, "", err
		}
		if err := p.SetParameters(st.Parameters); err != nil {
			return nil, "", fmt.Errorf("apply snapshot %s: %w", s.snapshotPath, err)
		}
		source = "snapshot " + s.snapshotPath
	case s.active:
		store, err := snapshot.NewStore(a.cfg.DBPath)
		if err != nil {
			return nil, "", err
		}
		defer store.Close()
		v, err := store.Active()
		if err != nil {
			return nil, "", err
		}
		if err := p.SetParameters(v.Parameters); err != nil {
			return nil, "", fmt.Errorf("apply version %s: %w", v.VersionID, err)
		}
		source = "version " + v.VersionID
	}
	return p, source, nil
}
