// Package pipeline rebuilds the aggregated project context from the tracked
// documents and persists it as a single artifact for IDE integrations.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Logical keys of the tracked documents.
const (
	KeyArchitecture = "architecture"
	KeyProgress     = "progress"
	KeyTasks        = "tasks"
)

// Keys lists the tracked document keys in payload order.
var Keys = []string{KeyArchitecture, KeyProgress, KeyTasks}

// Format is the serialization of the context file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat indicates an unsupported context file format.
var ErrUnknownFormat = errors.New("unknown context format")

// ParseFormat converts a configuration string into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContextPayload is the aggregated snapshot of the tracked documents.
type ContextPayload struct {
	Architecture string `json:"architecture" yaml:"architecture"`
	Progress     string `json:"progress" yaml:"progress"`
	Tasks        string `json:"tasks" yaml:"tasks"`
}

// Set assigns the document content for key. Unknown keys are ignored.
func (p *ContextPayload) Set(key, content string) {
	switch key {
	case KeyArchitecture:
		p.Architecture = content
	case KeyProgress:
		p.Progress = content
	case KeyTasks:
		p.Tasks = content
	}
}

// Placeholder is the text stored for a document that is missing or empty.
func Placeholder(key string) string {
	return fmt.Sprintf("No %s document found; the file is missing or empty.", key)
}

// Encode serializes the payload in the given format.
func (p *ContextPayload) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DecodePayload parses a context file written by Encode.
func DecodePayload(data []byte, format Format) (*ContextPayload, error) {
	var p ContextPayload
	switch format {
	case FormatJSON, "":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &p, nil
}
