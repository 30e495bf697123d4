// Package envelope implements the response contracts of the storefront API:
// successful reads arrive as {"data": ..., "meta": ...} and failures as
// {"message", "code", "action", "issues"}. Both are checked once here so
// callers never guess at the shape of a body.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Envelope separates the payload of a success response from its metadata.
type Envelope struct {
	Data json.RawMessage
	Meta json.RawMessage
}

// HasMeta reports whether the response carried a non-null meta object.
func (e Envelope) HasMeta() bool {
	trimmed := bytes.TrimSpace(e.Meta)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Split unwraps a success body. When the body is an object with a "data"
// member, Data holds that member and Meta holds "meta" (if any). Any other
// body is returned whole as Data with no Meta, so endpoints that answer
// without an envelope (e.g. /sign-in) still decode.
func Split(body []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Envelope{Data: json.RawMessage("{}")}, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return Envelope{}, fmt.Errorf("envelope: body is not valid JSON")
	}

	root := gjson.ParseBytes(trimmed)
	if !root.IsObject() {
		return Envelope{Data: clone(trimmed)}, nil
	}
	data := root.Get("data")
	if !data.Exists() {
		return Envelope{Data: clone(trimmed)}, nil
	}

	env := Envelope{Data: json.RawMessage(data.Raw)}
	if meta := root.Get("meta"); meta.Exists() {
		env.Meta = json.RawMessage(meta.Raw)
	}
	return env, nil
}

// Decode unmarshals the envelope parts into typed values. Missing meta leaves
// the zero value of M.
func Decode[T, M any](env Envelope) (T, M, error) {
	var (
		data T
		meta M
	)
	payload := bytes.TrimSpace(env.Data)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		return data, meta, fmt.Errorf("envelope: decode data: %w", err)
	}
	if env.HasMeta() {
		if err := json.Unmarshal(env.Meta, &meta); err != nil {
			return data, meta, fmt.Errorf("envelope: decode meta: %w", err)
		}
	}
	return data, meta, nil
}

// DecodeBody splits and decodes in one step.
func DecodeBody[T, M any](body []byte) (T, M, error) {
	env, err := Split(body)
	if err != nil {
		var (
			data T
			meta M
		)
		return data, meta, err
	}
	return Decode[T, M](env)
}

func clone(b []byte) json.RawMessage {
	return append(json.RawMessage(nil), b...)
}
