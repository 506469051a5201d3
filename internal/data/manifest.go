package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ManifestItem is one dataset prefix to mirror from OEDI.
type ManifestItem struct {
	Name   string   `json:"name"`
	Prefix string   `json:"prefix"` // e.g. "nrel-pds-building-stock/.../timeseries_individual_buildings/by_state/upgrade=0/state=CO"
	Dest   string   `json:"dest"`   // relative to the manifest's dest_root
	Files  []string `json:"files"`
	// IDs expand through Pattern ({id} placeholder) into additional files.
	IDs     []string `json:"building_ids,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

// Manifest lists which OEDI objects to download and where to put them.
type Manifest struct {
	BaseURL   string         `json:"base_url"`
	DestRoot  string         `json:"dest_root"`
	UpdatedAt string         `json:"updated_at,omitempty"` // ISO 8601 timestamp
	Items     []ManifestItem `json:"items"`
}

// Download is one object to fetch.
type Download struct {
	Key  string // object key below the base URL
	Dest string // local file path
}

// DefaultBuildingPattern matches the per-building file naming of the timeseries readers.
const DefaultBuildingPattern = "{id}-0.parquet"

// Downloads expands the manifest into individual objects, in manifest order.
func (m *Manifest) Downloads() []Download {
	var out []Download
	for _, it := range m.Items {
		dest := filepath.Join(m.DestRoot, it.Dest)
		prefix := strings.Trim(it.Prefix, "/")
		files := append([]string(nil), it.Files...)
		pattern := it.Pattern
		if pattern == "" {
			pattern = DefaultBuildingPattern
		}
		for _, id := range it.IDs {
			files = append(files, strings.ReplaceAll(pattern, "{id}", id))
		}
		for _, f := range files {
			out = append(out, Download{
				Key:  path.Join(prefix, f),
				Dest: filepath.Join(dest, filepath.FromSlash(f)),
			})
		}
	}
	return out
}

// LoadManifest loads a manifest from a JSON file
func LoadManifest(filePath string) (*Manifest, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Kind: "manifest", Path: filePath}
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest file: %w", err)
	}

	return &m, nil
}

// SaveManifest saves a manifest to a JSON file
func SaveManifest(m *Manifest, filePath string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}

	return nil
}

// GetDefaultManifestPath returns the default path for the OEDI manifest
func GetDefaultManifestPath() string {
	// Try environment variable first
	if p := os.Getenv("OEDI_MANIFEST"); p != "" {
		return p
	}
	return "./data/sources/oedi_manifest.json"
}
