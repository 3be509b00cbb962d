package widgetconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// ErrConfigFetch is returned by a Source when the remote configuration is unavailable.
var ErrConfigFetch = errors.New("widget config fetch failed")

// Resolve merges a remote partial configuration over the defaults. It never fails:
// malformed input yields the defaults, and individual fields that do not decode keep
// their default value. Nested objects are overlaid leaf by leaf, so one bad leaf does not
// discard its valid siblings.
func Resolve(raw []byte) Config {
	cfg, _ := resolve(raw)
	return cfg
}

// resolve also reports the dotted paths of the rejected fields.
func resolve(raw []byte) (Config, []string) {
	cfg := Defaults()
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return cfg, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return cfg, []string{"*"}
	}

	var rejected []string
	for _, name := range sortedKeys(fields) {
		cfg = overlay(cfg, []string{name}, fields[name], &rejected)
	}
	return cfg, rejected
}

// overlay applies value at path. When the whole value does not decode and it is an
// object, each of its fields is tried on its own.
func overlay(cfg Config, path []string, value json.RawMessage, rejected *[]string) Config {
	if doc, err := nest(path, value); err == nil {
		next := cfg.clone()
		if err := json.Unmarshal(doc, &next); err == nil {
			return next
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil || len(fields) == 0 {
		*rejected = append(*rejected, strings.Join(path, "."))
		return cfg
	}
	for _, name := range sortedKeys(fields) {
		child := append(path[:len(path):len(path)], name)
		cfg = overlay(cfg, child, fields[name], rejected)
	}
	return cfg
}

// nest wraps value as {"a":{"b":value}} for path a.b.
func nest(path []string, value json.RawMessage) ([]byte, error) {
	doc := []byte(value)
	for i := len(path) - 1; i >= 0; i-- {
		var err error
		doc, err = json.Marshal(map[string]json.RawMessage{path[i]: doc})
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func sortedKeys(fields map[string]json.RawMessage) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source returns the raw remote configuration for a widget.
type Source interface {
	FetchWidgetConfig(ctx context.Context, widgetID string) ([]byte, error)
}

// Fetcher loads and resolves widget configuration from a Source.
type Fetcher struct {
	source Source
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. A nil source always yields defaults.
func NewFetcher(source Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{source: source, logger: logger}
}

// Fetch returns the resolved configuration for widgetID. Any fetch failure is logged
// and replaced by the defaults; there is no retry.
func (f *Fetcher) Fetch(ctx context.Context, widgetID string) Config {
	if f.source == nil {
		return Defaults()
	}

	raw, err := f.source.FetchWidgetConfig(ctx, widgetID)
	if err != nil {
		if !errors.Is(err, ErrConfigFetch) {
			err = fmt.Errorf("%w: %w", ErrConfigFetch, err)
		}
		f.logger.Warn("Using default widget config", "widget_id", widgetID, "error", err)
		return Defaults()
	}

	cfg, rejected := resolve(raw)
	if len(rejected) > 0 {
		f.logger.Warn("Ignored malformed widget config fields", "widget_id", widgetID, "fields", rejected)
	}
	f.logger.Debug("Widget config resolved", "widget_id", widgetID)
	return cfg
}
