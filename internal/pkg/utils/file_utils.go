package utils

import (
	"bytes"
	"fmt"
	"os"

	"chain_reader/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadTokensFromJSON reads a JSON file holding a list of tokens.
// The list may hold token objects or bare address strings.
func LoadTokensFromJSON(filePath string) ([]entity.TokenInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tokens from %s: %w", filePath, err)
	}

	tokens := make([]entity.TokenInfo, 0, len(raw))
	for i, item := range raw {
		var token entity.TokenInfo
		if trimmed := bytes.TrimSpace(item); len(trimmed) > 0 && trimmed[0] == '"' {
			err = json.Unmarshal(trimmed, &token.Address)
		} else {
			err = json.Unmarshal(item, &token)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal token %d from %s: %w", i, filePath, err)
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}
