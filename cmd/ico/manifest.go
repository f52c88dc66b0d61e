package main

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

// manifest describes an icon set. Example:
//
//	sizes: [16, 24, 32, 48, 64, 256]
//	format: both
type manifest struct {
	Sizes  []int  `yaml:"sizes"`
	Format string `yaml:"format"`
}

// loadManifest reads and validates the icon set manifest found at path.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest file %s: %w", path, err)
	}
	return parseManifest(data)
}

func parseManifest(data []byte) (*manifest, error) {
	m := &manifest{}
	if err := yaml.UnmarshalStrict(data, m); err != nil {
		if yamlErr, ok := err.(*yaml.TypeError); ok {
			for _, msg := range yamlErr.Errors {
				log.Printf("manifest error: %s", msg)
			}
		}
		return nil, fmt.Errorf("error unmarshaling manifest: %w", err)
	}

	if m.Format == "" {
		m.Format = formatPNG
	}
	if !validFormat(m.Format) {
		return nil, fmt.Errorf("unsupported payload format in manifest: %s", m.Format)
	}
	if len(m.Sizes) == 0 {
		return nil, fmt.Errorf("the manifest should list at least one icon size")
	}
	for i, size := range m.Sizes {
		if size < 1 || size > 256 {
			return nil, fmt.Errorf("manifest size #%d out of the 1..256 range: %d", i, size)
		}
	}

	return m, nil
}
