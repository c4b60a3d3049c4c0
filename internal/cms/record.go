package cms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// record is one CMS entry with Strapi v4 "attributes" flattened into the
// top level, so v4 and v5 responses read the same way.
type record map[string]json.RawMessage

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func decodeRecords(body []byte) ([]record, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode cms envelope: %w", err)
	}

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil, nil
	case data[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode cms data: %w", err)
		}
		out := make([]record, 0, len(raw))
		for _, r := range raw {
			rec, err := decodeRecord(r)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	default:
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		return []record{rec}, nil
	}
}

func decodeRecord(raw json.RawMessage) (record, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode cms record: %w", err)
	}

	if attrs, ok := rec["attributes"]; ok {
		var inner record
		if err := json.Unmarshal(attrs, &inner); err != nil {
			return nil, fmt.Errorf("decode cms attributes: %w", err)
		}
		delete(rec, "attributes")
		for k, v := range inner {
			if _, exists := rec[k]; !exists {
				rec[k] = v
			}
		}
	}

	return rec, nil
}

func (r record) str(keys ...string) string {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		if name := relationName(raw); name != "" {
			return name
		}
	}
	return ""
}

func (r record) integer(key string) int64 {
	raw, ok := r[key]
	if !ok {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return v
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, _ := strconv.ParseInt(s, 10, 64)
		return v
	}
	return 0
}

func (r record) flag(key string) bool {
	var b bool
	if raw, ok := r[key]; ok {
		_ = json.Unmarshal(raw, &b)
	}
	return b
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// date parses the first present key. Date-only values are read as local
// midnight, matching how editors enter event days.
func (r record) date(keys ...string) time.Time {
	for _, k := range keys {
		s := r.str(k)
		if s == "" {
			continue
		}
		for _, layout := range timeLayouts {
			loc := time.UTC
			if layout == time.DateOnly {
				loc = time.Local
			}
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// media resolves an upload field in any of the shapes Strapi produces:
// a plain string, {url}, {data: {attributes: {url}}} or {data: [{...}]}.
func (r record) media(base string, keys ...string) string {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		if u := mediaURL(raw); u != "" {
			return resolveURL(base, u)
		}
	}
	return ""
}

func mediaURL(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return mediaURL(list[0])
		}
		return ""
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		return ""
	}
	if data, ok := rec["data"]; ok {
		return mediaURL(data)
	}
	var u string
	if v, ok := rec["url"]; ok {
		_ = json.Unmarshal(v, &u)
	}
	return u
}

// relationName reads the display name of a populated relation.
func relationName(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return ""
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return ""
	}
	if data, ok := rec["data"]; ok {
		return relationName(data)
	}
	return rec.str("name", "title")
}

func resolveURL(base, ref string) string {
	if ref == "" || base == "" {
		return ref
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "//") {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
