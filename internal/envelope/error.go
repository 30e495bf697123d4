package envelope

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

// Issue is a field-level problem reported by the API.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorBody is the failure envelope. Every member is optional.
type ErrorBody struct {
	Message string  `json:"message,omitempty"`
	Code    string  `json:"code,omitempty"`
	Action  string  `json:"action,omitempty"`
	Issues  []Issue `json:"issues,omitempty"`
}

// ParseError reads an error body best-effort: anything that is not a JSON
// object yields an empty ErrorBody rather than an error.
func ParseError(body []byte) ErrorBody {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return ErrorBody{}
	}
	root := gjson.ParseBytes(trimmed)
	if !root.IsObject() {
		return ErrorBody{}
	}

	out := ErrorBody{
		Message: stringMember(root, "message"),
		Code:    stringMember(root, "code"),
		Action:  strings.TrimSpace(stringMember(root, "action")),
	}
	issues := root.Get("issues")
	if issues.IsArray() {
		issues.ForEach(func(_, item gjson.Result) bool {
			if !item.IsObject() {
				return true
			}
			out.Issues = append(out.Issues, Issue{
				Field:   stringMember(item, "field"),
				Message: stringMember(item, "message"),
			})
			return true
		})
	}
	return out
}

func stringMember(r gjson.Result, name string) string {
	v := r.Get(name)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}
