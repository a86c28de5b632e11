package sheetdef

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/natural"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a definition document.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	}
	return "unknown"
}

var ErrUnknownFormat = errors.New("unknown definition format")

// FormatOf selects the format by file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads and decodes the definition stored in path.
func Load(path string) (*Definition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read definition: %w", err)
	}
	def, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a definition. TOML documents are converted to YAML first,
// tables keep their keys in natural order since TOML decoding does not
// preserve document order.
func Parse(data []byte, format Format) (*Definition, error) {
	if format == FormatTOML {
		converted, err := tomlToYAML(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	def := &Definition{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(def); err != nil {
		return nil, fmt.Errorf("failed to decode %s definition: %w", format, err)
	}
	return def, nil
}

func tomlToYAML(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode toml definition: %w", err)
	}
	node, err := toNode(doc)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("failed to convert toml definition: %w", err)
	}
	return out, nil
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func toNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Sort(natural.StringSlice(keys))
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			child, err := toNode(t[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			n.Content = append(n.Content, scalarNode("!!str", k), child)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range t {
			child, err := toNode(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case string:
		return scalarNode("!!str", t), nil
	case bool:
		return scalarNode("!!bool", strconv.FormatBool(t)), nil
	case int64:
		return scalarNode("!!int", strconv.FormatInt(t, 10)), nil
	case float64:
		return scalarNode("!!float", strconv.FormatFloat(t, 'f', -1, 64)), nil
	case time.Time:
		return scalarNode("!!str", t.Format(time.RFC3339)), nil
	case toml.LocalDate, toml.LocalTime, toml.LocalDateTime:
		return scalarNode("!!str", fmt.Sprint(t)), nil
	}
	return nil, fmt.Errorf("unsupported toml value %T", v)
}
