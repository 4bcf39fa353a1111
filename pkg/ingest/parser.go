package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"warden-hq/warden/pkg/rules"
)

// MaxFileBytes is the maximum accepted rule file size. Descriptor files
// are small; anything larger is rejected unread.
const MaxFileBytes = 1 << 20

// ruleFile is the wrapper form of a descriptor file.
type ruleFile struct {
	Rules []rules.Rule `json:"rules"`
}

// ParseRuleFile decodes a rule descriptor file. Both a bare JSON array of
// rules and an object with a "rules" key are accepted. Parsing performs
// no rule validation; the repository validates each candidate during
// ingestion.
func ParseRuleFile(data []byte) ([]rules.Rule, error) {
	if len(data) > MaxFileBytes {
		return nil, fmt.Errorf("file is %d bytes, limit is %d", len(data), MaxFileBytes)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("file is empty")
	}

	if trimmed[0] == '[' {
		var list []rules.Rule
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to parse rule list: %w", err)
		}
		return list, nil
	}

	var file ruleFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	if file.Rules == nil {
		return nil, errors.New(`file has no "rules" key`)
	}
	return file.Rules, nil
}
