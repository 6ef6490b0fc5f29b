// Package secrets reads gateway credentials from Vault, AWS Secrets Manager,
// GCP Secret Manager or a local directory.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSecretNotFound is returned when a path holds no secret
var ErrSecretNotFound = errors.New("secret not found")

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrSecretNotFound, path)
}

// parsePayload decodes a JSON object into string values. Numbers and booleans
// are kept in their JSON text form.
func parsePayload(path string, data []byte) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("secret %s is not a JSON object: %w", path, err)
	}
	return flatten(raw), nil
}

func flatten(raw map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = strings.TrimSpace(string(v))
	}
	return out
}

func stringify(data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
