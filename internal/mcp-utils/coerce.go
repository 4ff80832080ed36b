// Package mcputils binds loosely typed MCP tool arguments onto Go structs.
//
// MCP clients are inconsistent about argument encoding: some send arrays and
// objects as JSON values, others send everything as strings ("10", "true",
// `["users"]`, `{"tables": []}`). CoerceBindArguments accepts both.
package mcputils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ArgumentGetter is an interface for getting arguments from a request.
// mcp.CallToolRequest satisfies it.
type ArgumentGetter interface {
	GetArguments() map[string]interface{}
}

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

// CoerceBindArguments binds request arguments to target using json tags.
//
// Fields typed json.RawMessage receive the argument re-encoded as JSON, so
// callers can unmarshal nested documents (an AST, a node list) with their own
// JSON rules instead of mapstructure's.
func CoerceBindArguments[T any](request ArgumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			rawJSONHook,
			stringJSONHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(request.GetArguments())
}

// rawJSONHook turns any value bound for a json.RawMessage field into JSON
// bytes. Strings must already hold valid JSON.
func rawJSONHook(_ reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != rawMessageType || data == nil {
		return data, nil
	}
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	if s, ok := data.(string); ok {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return json.RawMessage(nil), nil
		}
		if !json.Valid([]byte(trimmed)) {
			return nil, fmt.Errorf("invalid JSON value: %s", abbreviate(trimmed))
		}
		return json.RawMessage(trimmed), nil
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode argument: %w", err)
	}
	return json.RawMessage(encoded), nil
}

// stringJSONHook decodes string arguments that hold JSON arrays, objects,
// booleans or numbers when the target field expects that kind.
func stringJSONHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return data, nil
	}

	switch t.Kind() {
	case reflect.Slice:
		if looksLike(raw, '[', ']') {
			slicePtr := reflect.New(t)
			if err := json.Unmarshal([]byte(raw), slicePtr.Interface()); err == nil {
				return slicePtr.Elem().Interface(), nil
			}
		}
	case reflect.Map, reflect.Struct:
		if looksLike(raw, '{', '}') {
			var generic interface{}
			if err := json.Unmarshal([]byte(raw), &generic); err == nil {
				return generic, nil
			}
		}
	case reflect.Bool:
		if raw == "true" || raw == "false" {
			return raw == "true", nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		var n json.Number
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			// mapstructure converts json.Number to the field's kind.
			return n, nil
		}
	}
	return data, nil
}

func looksLike(s string, open, close byte) bool {
	return len(s) >= 2 && s[0] == open && s[len(s)-1] == close
}

func abbreviate(s string) string {
	const max = 40
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
