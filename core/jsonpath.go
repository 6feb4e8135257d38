package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtractJSONPath walks a dot-separated path ("response.id") through a JSON
// object and returns the value at the leaf as a string. Numbers keep their
// wire form so numeric ids survive intact.
func ExtractJSONPath(body []byte, path string) (string, bool, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", false, fmt.Errorf("core: json path is required")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", false, ProtocolError("core: response body is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var parsed map[string]any
	if err := decoder.Decode(&parsed); err != nil {
		return "", false, ProtocolError("core: response is not a json object: %v", err)
	}

	var current any = parsed
	for _, segment := range strings.Split(path, ".") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			return "", false, fmt.Errorf("core: json path has an empty segment")
		}
		object, ok := current.(map[string]any)
		if !ok {
			return "", false, nil
		}
		current, ok = object[segment]
		if !ok {
			return "", false, nil
		}
	}

	switch value := current.(type) {
	case string:
		return value, true, nil
	case json.Number:
		return value.String(), true, nil
	case bool:
		return strconv.FormatBool(value), true, nil
	case nil:
		return "", false, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", false, ProtocolError("core: json path value is not representable: %v", err)
		}
		return string(encoded), true, nil
	}
}
