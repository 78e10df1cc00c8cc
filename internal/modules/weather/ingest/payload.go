package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
)

var ErrEmptyPayload = errors.New("empty payload")

// ValuesFromPayload decodes an upload relayed over MQTT. The payload is
// either the query string of an upload URL or a flat JSON object keyed by
// the same parameter names. Nested JSON values are skipped.
func ValuesFromPayload(payload []byte) (url.Values, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	if payload[0] != '{' {
		values, err := url.ParseQuery(string(payload))
		if err != nil {
			return nil, fmt.Errorf("parse query payload: %w", err)
		}
		return values, nil
	}

	if !gjson.ValidBytes(payload) {
		return nil, errors.New("invalid JSON payload")
	}
	values := url.Values{}
	gjson.ParseBytes(payload).ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Null:
		case gjson.String:
			values.Set(key.String(), value.Str)
		case gjson.Number, gjson.True, gjson.False:
			values.Set(key.String(), value.Raw)
		default:
			// objects and arrays have no parameter equivalent
		}
		return true
	})
	return values, nil
}
