// Package topofile loads overlay topology descriptions from disk.
// JSON, TOML and YAML are accepted; the format is chosen by file extension.
//
// Example (JSON):
//
//	{
//	  "num_nodes": 4,
//	  "min_neighbors": 1,
//	  "max_neighbors": 3,
//	  "resources": {"n1": ["r1", "r2"], "n2": ["r3"], "n3": ["r4"], "n4": ["r5"]},
//	  "edges": [["n1", "n2"], ["n2", "n3"], ["n3", "n4"]]
//	}
package topofile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tutu-network/peersearch/internal/domain"
)

// Format is a topology file encoding.
type Format string

const (
	JSON Format = "json"
	TOML Format = "toml"
	YAML Format = "yaml"
)

var (
	// ErrUnsupportedFormat is returned for unknown file extensions or formats.
	ErrUnsupportedFormat = errors.New("unsupported topology format")
	// ErrMalformedEdge is returned when an edge is not a pair of peer ids.
	ErrMalformedEdge = errors.New("edge must name exactly two peers")
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load reads and checks the topology file at path.
func Load(path string) (domain.TopologySpec, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return domain.TopologySpec{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.TopologySpec{}, fmt.Errorf("read topology: %w", err)
	}
	spec, err := Parse(data, f)
	if err != nil {
		return domain.TopologySpec{}, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes a topology and checks that a declared num_nodes matches
// the number of peers listed under resources.
func Parse(data []byte, f Format) (domain.TopologySpec, error) {
	var spec domain.TopologySpec
	switch f {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return spec, fmt.Errorf("parse json: %w", err)
		}
		if err := checkJSONEdges(data); err != nil {
			return spec, fmt.Errorf("parse json: %w", err)
		}
	case TOML:
		if _, err := toml.Decode(string(data), &spec); err != nil {
			return spec, fmt.Errorf("parse toml: %w", err)
		}
	case YAML:
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return spec, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return spec, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	return spec, Check(spec)
}

// checkJSONEdges rejects edges that are not pairs. encoding/json pads or
// truncates fixed-size arrays instead of failing like TOML and YAML do.
func checkJSONEdges(data []byte) error {
	var raw struct {
		Edges [][]domain.PeerID `json:"edges"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, e := range raw.Edges {
		if len(e) != 2 {
			return fmt.Errorf("%w: edge %d has %d", ErrMalformedEdge, i, len(e))
		}
	}
	return nil
}

// Check reports domain.ErrConfigInconsistent when num_nodes is declared
// and disagrees with the resources table.
func Check(spec domain.TopologySpec) error {
	if spec.NumNodes != nil && *spec.NumNodes != len(spec.Resources) {
		return fmt.Errorf("%w: num_nodes=%d, resources lists %d",
			domain.ErrConfigInconsistent, *spec.NumNodes, len(spec.Resources))
	}
	return nil
}

// Write encodes spec in the given format.
func Write(w io.Writer, spec domain.TopologySpec, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(spec)
	case TOML:
		return toml.NewEncoder(w).Encode(spec)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(spec); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}
