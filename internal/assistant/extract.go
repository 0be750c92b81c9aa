package assistant

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	anyFenceRe  = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// ExtractJSON finds a JSON value in model output: a ```json fence first,
// then any fence, then the whole text. Object and array candidates that
// fail to parse get one pass through jsonrepair.
func ExtractJSON(content string) (json.RawMessage, bool) {
	candidate := content
	if m := jsonFenceRe.FindStringSubmatch(content); m != nil && m[1] != "" {
		candidate = m[1]
	} else if m := anyFenceRe.FindStringSubmatch(content); m != nil && m[1] != "" {
		candidate = m[1]
	}
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, false
	}
	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), true
	}
	if candidate[0] != '{' && candidate[0] != '[' {
		return nil, false
	}
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil || !json.Valid([]byte(repaired)) {
		return nil, false
	}
	return json.RawMessage(repaired), true
}

// ResponseData is the value returned under "data": the extracted JSON, or
// the raw text as a JSON string.
func ResponseData(content string) json.RawMessage {
	if raw, ok := ExtractJSON(content); ok {
		return raw
	}
	b, _ := json.Marshal(content)
	return b
}
