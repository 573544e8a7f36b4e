package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/brizzai/agency-chat/internal/models"
	"gopkg.in/yaml.v3"
)

// Format selects how a transcript is written.
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// ParseFormat accepts table, yaml/yml and json, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use table, yaml or json)", s)
	}
}

// exportDocument mirrors the history payload so exports can be read back.
type exportDocument struct {
	Messages []models.ChatMessage `json:"messages" yaml:"messages"`
}

// Export writes messages as YAML or JSON. Table output is the caller's
// concern since it depends on the terminal.
func Export(w io.Writer, messages []models.ChatMessage, format Format) error {
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	doc := exportDocument{Messages: messages}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return fmt.Errorf("format %q cannot be exported", format)
	}
}

// ExportToFile writes messages to filename, picking JSON for a .json
// extension and YAML otherwise (adding .yaml when there is no extension).
// It returns the path written.
func ExportToFile(messages []models.ChatMessage, filename string) (string, error) {
	format := FormatYAML
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
	default:
		filename += ".yaml"
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := Export(f, messages, format); err != nil {
		_ = f.Close()
		return "", err
	}
	return filename, f.Close()
}

// Import reads a transcript written by Export, in either format.
func Import(r io.Reader) ([]models.ChatMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc exportDocument
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse transcript: %w", err)
		}
		return doc.Messages, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	return doc.Messages, nil
}
