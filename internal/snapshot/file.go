package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region save
// SaveFile writes st as indented JSON, replacing path atomically via a temp file.
func SaveFile(path string, st State) error {
	if err := st.Parameters.CheckFinite(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if st.SavedAt.IsZero() {
		st.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
// #endregion save

// #region load
// LoadFile reads a state file. A bare flat {"name": value} object is accepted
// as a parameters-only snapshot.
func LoadFile(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("load %s: %w", path, err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return State{}, fmt.Errorf("load %s: %w", path, err)
	}

	var st State
	if _, wrapped := probe["parameters"]; wrapped {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&st); err != nil {
			return State{}, fmt.Errorf("load %s: %w", path, err)
		}
	} else {
		var flat params.Set
		if err := json.Unmarshal(data, &flat); err != nil {
			return State{}, fmt.Errorf("load %s: %w", path, err)
		}
		st.Parameters = flat
	}
	if st.Parameters == nil {
		st.Parameters = params.Set{}
	}
	return st, nil
}
// #endregion load
