package remote

import (
	"context"
	"time"
)

// Document is a raw JSON document as it travels over the wire.
type Document = map[string]any

// Sentinel values usable inside a Document. The backing store rejects
// absent-valued fields, so WriteFull strips them before transmission;
// ServerTimestamp is replaced with store time at write.
type sentinel int

const (
	// Absent marks a field that must not be transmitted.
	Absent sentinel = iota
	// ServerTimestamp marks a field the store fills with its own clock.
	ServerTimestamp
)

// Channel is a live subscription to single remote JSON documents with
// one-shot reads and full-document writes.
//
// Subscribe delivers the full document on every change, including echoes of
// this client's own writes; filtering echoes is the caller's job. A nil
// document on the stream means the document was deleted.
type Channel interface {
	Subscribe(ctx context.Context, path string) (<-chan Document, error)
	WriteFull(ctx context.Context, path string, doc Document) error
	ReadOnce(ctx context.Context, path string) (Document, error)
}

// StripAbsent removes every field whose value is the Absent sentinel,
// recursively through nested maps and slices. Absent slice elements are
// dropped. The input is not modified.
func StripAbsent(doc Document) Document {
	out, _ := stripValue(doc)
	m, _ := out.(Document)
	return m
}

func stripValue(v any) (any, bool) {
	switch val := v.(type) {
	case sentinel:
		if val == Absent {
			return nil, false
		}
		return val, true
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			if kept, ok := stripValue(nested); ok {
				out[k] = kept
			}
		}
		return out, true
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if kept, ok := stripValue(item); ok {
				out = append(out, kept)
			}
		}
		return out, true
	default:
		return v, true
	}
}

// resolveServerTime replaces ServerTimestamp sentinels with the given time,
// recursively. Returns a fresh structure for maps and slices touched.
func resolveServerTime(v any, now time.Time) any {
	switch val := v.(type) {
	case sentinel:
		if val == ServerTimestamp {
			return now.UTC().Format(time.RFC3339Nano)
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			out[k] = resolveServerTime(nested, now)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveServerTime(item, now)
		}
		return out
	default:
		return v
	}
}
