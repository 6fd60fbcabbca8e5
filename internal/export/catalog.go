package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// InitialVersion is written to version.txt for a fresh export directory.
const InitialVersion = "0.1.0"

// Catalog is a previously exported catalog loaded from disk.
type Catalog struct {
	BasePath string
	Version  string
	Models   map[string]*Model // keyed by model name
	Files    map[string]string // model name -> file name
}

// Init creates an empty export directory if version.txt is missing.
func Init(basePath string) error {
	if err := os.MkdirAll(filepath.Join(basePath, "models"), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	versionPath := filepath.Join(basePath, "version.txt")
	if _, err := os.Stat(versionPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking version.txt: %w", err)
	}
	return os.WriteFile(versionPath, []byte(InitialVersion+"\n"), 0o644)
}

// Load reads every model file under basePath/models.
func Load(basePath string) (*Catalog, error) {
	cat := &Catalog{
		BasePath: basePath,
		Models:   make(map[string]*Model),
		Files:    make(map[string]string),
	}

	versionBytes, err := os.ReadFile(filepath.Join(basePath, "version.txt"))
	if err != nil {
		return nil, fmt.Errorf("reading version.txt: %w", err)
	}
	cat.Version = strings.TrimSpace(string(versionBytes))

	modelsDir := filepath.Join(basePath, "models")
	entries, err := os.ReadDir(modelsDir)
	if os.IsNotExist(err) {
		return cat, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading models dir: %w", err)
	}

	for _, f := range entries {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(modelsDir, f.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name(), err)
		}
		var m Model
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.Name(), err)
		}
		if m.Name == "" {
			return nil, fmt.Errorf("parsing %s: missing name", f.Name())
		}
		if prev, dup := cat.Files[m.Name]; dup {
			return nil, fmt.Errorf("model %q defined in both %s and %s", m.Name, prev, f.Name())
		}
		cat.Models[m.Name] = &m
		cat.Files[m.Name] = f.Name()
	}

	return cat, nil
}

// Names returns the loaded model names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove deletes a model's file from the export.
func (c *Catalog) Remove(name string) error {
	file, ok := c.Files[name]
	if !ok {
		file = Slug(name) + ".yaml"
	}
	err := os.Remove(filepath.Join(c.BasePath, "models", file))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	delete(c.Models, name)
	delete(c.Files, name)
	return nil
}
