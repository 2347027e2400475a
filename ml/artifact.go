package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactPath is where Save writes the artifact called name.
func ArtifactPath(dir, name string) string {
	return filepath.Join(dir, name+".json")
}

// Save writes v as JSON into dir, creating dir if needed. The file is
// replaced atomically so readers never see a partial artifact.
func Save(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), ArtifactPath(dir, name)); err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}
	return nil
}

func Load(dir, name string, v any) error {
	data, err := os.ReadFile(ArtifactPath(dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
