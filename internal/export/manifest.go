package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestModel describes one model file in the manifest.
type ManifestModel struct {
	Name      string   `yaml:"name"`
	File      string   `yaml:"file"`
	Brand     string   `yaml:"brand"`
	Providers int      `yaml:"providers"`
	Currency  []string `yaml:"currencies"`
}

// ManifestStats holds aggregate counts.
type ManifestStats struct {
	TotalModels    int            `yaml:"total_models"`
	TotalOffers    int            `yaml:"total_offers"`
	TotalBrands    int            `yaml:"total_brands"`
	OffersBySource map[string]int `yaml:"offers_by_source"`
}

// Manifest is the manifest.yaml index of an export.
type Manifest struct {
	Version       string          `yaml:"version"`
	GeneratedAt   string          `yaml:"generated_at"`
	SchemaVersion string          `yaml:"schema_version"`
	Models        []ManifestModel `yaml:"models"`
	Stats         ManifestStats   `yaml:"stats"`
}

const manifestHeader = "# Model Price Catalog Manifest\n# Auto-generated - DO NOT EDIT MANUALLY\n# Run: pricehub sync to regenerate\n\n"

// GenerateManifest rebuilds manifest.yaml from the files on disk.
func GenerateManifest(basePath string) (*Manifest, error) {
	cat, err := Load(basePath)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Version:       cat.Version,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		SchemaVersion: "1.0",
		Stats:         ManifestStats{OffersBySource: make(map[string]int)},
	}

	brands := make(map[string]bool)
	for _, name := range cat.Names() {
		m := cat.Models[name]
		manifest.Models = append(manifest.Models, ManifestModel{
			Name:      m.Name,
			File:      filepath.ToSlash(filepath.Join("models", Slug(m.Name)+".yaml")),
			Brand:     m.Brand,
			Providers: len(m.Providers),
			Currency:  m.ToCanonical().Currencies(),
		})
		brands[m.Brand] = true
		manifest.Stats.TotalOffers += len(m.Providers)
		for _, p := range m.Providers {
			manifest.Stats.OffersBySource[p.ProviderID]++
		}
	}
	sort.Slice(manifest.Models, func(i, j int) bool {
		return manifest.Models[i].File < manifest.Models[j].File
	})
	manifest.Stats.TotalModels = len(manifest.Models)
	manifest.Stats.TotalBrands = len(brands)

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	var b strings.Builder
	b.WriteString(manifestHeader)
	b.Write(data)
	if err := os.WriteFile(filepath.Join(basePath, "manifest.yaml"), []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return manifest, nil
}
