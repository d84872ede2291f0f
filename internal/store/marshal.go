package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/reducerx/internal/value"
)

// marshalState converts a state to canonical JSON TEXT for storage.
func marshalState(state value.Object) (string, error) {
	if state == nil {
		state = value.Object{}
	}
	data, err := value.MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), nil
}

// marshalPayload converts a payload to canonical JSON TEXT. A nil payload
// is stored as SQL NULL so it reads back as nil rather than Null.
func marshalPayload(payload value.Value) (sql.NullString, error) {
	if payload == nil {
		return sql.NullString{}, nil
	}
	data, err := value.MarshalCanonical(payload)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal payload: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalState parses canonical JSON TEXT to an Object.
// Integers are decoded through json.Number so values above 2^53 survive.
func unmarshalState(data string) (value.Object, error) {
	if data == "" || data == "{}" {
		return value.Object{}, nil
	}
	obj, err := value.UnmarshalObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return obj, nil
}

func unmarshalPayload(data sql.NullString) (value.Value, error) {
	if !data.Valid {
		return nil, nil
	}
	v, err := value.Unmarshal([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return v, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
