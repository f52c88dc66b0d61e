package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManifest_Parse(t *testing.T) {
	assert := assert.New(t)

	m, err := parseManifest([]byte("sizes: [16, 24, 256]\nformat: both\n"))
	assert.NoError(err)
	assert.Equal([]int{16, 24, 256}, m.Sizes)
	assert.Equal(formatBoth, m.Format)

	m, err = parseManifest([]byte("sizes:\n  - 32\n"))
	assert.NoError(err)
	assert.Equal(formatPNG, m.Format)
}

func TestManifest_ShouldRejectInvalidContent(t *testing.T) {
	testCases := map[string]string{
		"no sizes":      "format: png\n",
		"size too big":  "sizes: [16, 512]\n",
		"size zero":     "sizes: [0]\n",
		"bad format":    "sizes: [16]\nformat: gif\n",
		"unknown field": "sizes: [16]\ncolors: 256\n",
		"wrong type":    "sizes: large\n",
	}

	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := parseManifest([]byte(content))
			assert.Error(t, err)
		})
	}
}

func TestManifest_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icons.yaml")
	err := os.WriteFile(path, []byte("sizes: [48]\nformat: bmp\n"), 0644)
	assert.NoError(t, err)

	m, err := loadManifest(path)
	assert.NoError(t, err)
	assert.Equal(t, []int{48}, m.Sizes)

	_, err = loadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
