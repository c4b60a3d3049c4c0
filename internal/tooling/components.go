package tooling

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var ErrMissingComponents = errors.New("required components are missing")

type Component struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type ComponentManifest struct {
	Components []Component `yaml:"components"`
}

type ComponentResult struct {
	Component
	Present bool
}

func LoadComponents(path string) (ComponentManifest, error) {
	var m ComponentManifest

	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read component manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse component manifest %s: %w", path, err)
	}
	if len(m.Components) == 0 {
		return m, fmt.Errorf("component manifest %s lists no components", path)
	}

	for i, c := range m.Components {
		if c.Path == "" {
			return m, fmt.Errorf("component %d (%q) has no path", i, c.Name)
		}
		if c.Name == "" {
			m.Components[i].Name = c.Path
		}
	}

	return m, nil
}

// VerifyComponents checks every component path relative to dir.
func VerifyComponents(m ComponentManifest, dir string) []ComponentResult {
	results := make([]ComponentResult, 0, len(m.Components))
	for _, c := range m.Components {
		info, err := os.Stat(filepath.Join(dir, c.Path))
		results = append(results, ComponentResult{
			Component: c,
			Present:   err == nil && !info.IsDir(),
		})
	}
	return results
}

// Report prints one ✓/✗ line per component and returns ErrMissingComponents
// when any is absent.
func Report(w io.Writer, results []ComponentResult) error {
	missing := 0
	for _, r := range results {
		mark := "✓"
		if !r.Present {
			mark = "✗"
			missing++
		}
		fmt.Fprintf(w, "%s %s (%s)\n", mark, r.Name, r.Path)
	}

	if missing > 0 {
		fmt.Fprintf(w, "\n%d of %d components missing\n", missing, len(results))
		return fmt.Errorf("%w: %d", ErrMissingComponents, missing)
	}

	fmt.Fprintf(w, "\nall %d components present\n", len(results))
	return nil
}
