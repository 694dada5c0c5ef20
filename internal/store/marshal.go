package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/cartrecovery/internal/model"
)

// marshalJSON encodes v without HTML escaping so stored mail bodies and
// config values round-trip byte for byte.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func marshalConfigs(what string, cfgs []model.Config) (string, error) {
	if cfgs == nil {
		cfgs = []model.Config{}
	}
	s, err := marshalJSON(cfgs)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return s, nil
}

func unmarshalConfigs(what, data string) ([]model.Config, error) {
	cfgs := []model.Config{}
	if data == "" {
		return cfgs, nil
	}
	if err := json.Unmarshal([]byte(data), &cfgs); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return cfgs, nil
}

func marshalFields(fields map[string]any) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	s, err := marshalJSON(fields)
	if err != nil {
		return "", fmt.Errorf("marshal custom fields: %w", err)
	}
	return s, nil
}

func unmarshalFields(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal custom fields: %w", err)
	}
	return fields, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
