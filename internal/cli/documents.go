package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

// Output formats accepted by --output.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// diagramDocument is the on-disk shape of a diagram: the nodes/edges pair
// also used by the HTTP API and MCP tools.
type diagramDocument struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// readInput reads path, or stdin when path is "-" or empty.
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// decodeDocument decodes JSON or YAML into v. YAML is converted to JSON
// first so both formats share the JSON field names and defaults.
func decodeDocument(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty document")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, v); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		return nil
	}

	var generic any
	if err := yaml.Unmarshal(trimmed, &generic); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("unsupported YAML document: %w", err)
	}
	if err := json.Unmarshal(asJSON, v); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	return nil
}

// isDiagram reports whether a decoded document carries diagram nodes
// rather than AST tables.
func isDiagram(data []byte) bool {
	var probe struct {
		Nodes json.RawMessage `json:"nodes"`
	}
	return decodeDocument(data, &probe) == nil && len(probe.Nodes) > 0 && string(probe.Nodes) != "null"
}

// loadAST reads an AST document, reducing a diagram document to its AST.
func loadAST(path string, stdin io.Reader) (*schema.SchemaAST, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return nil, err
	}
	if isDiagram(data) {
		var doc diagramDocument
		if err := decodeDocument(data, &doc); err != nil {
			return nil, err
		}
		return graph.Reduce(doc.Nodes, doc.Edges)
	}

	var ast schema.SchemaAST
	if err := decodeDocument(data, &ast); err != nil {
		return nil, err
	}
	return &ast, nil
}

// writeOutput writes v as indented JSON or as YAML. YAML output uses the
// JSON field names.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON, formatText, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		asJSON, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(asJSON, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func checkFormat(format string, allowText bool) error {
	switch format {
	case formatJSON, formatYAML:
		return nil
	case formatText:
		if allowText {
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q", format)
}
