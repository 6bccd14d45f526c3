package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Supported summary output formats.
const (
	SummaryFormatText = "text"
	SummaryFormatJSON = "json"
)

// SummaryEntry is one key of a rendered summary.
type SummaryEntry struct {
	Key   string `json:"key"`
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// FormatSummary renders a resolved configuration in the requested format. Keys
// are emitted in sorted order so identical configurations render identically.
func FormatSummary(resolved *Resolved, format string) (string, error) {
	if resolved == nil {
		return "", fmt.Errorf("resolved configuration is nil")
	}
	return formatEntries("Resolved", resolved.All(), format)
}

// FormatMockSummary renders the mock generator subset.
func FormatMockSummary(mock MockConfig, format string) (string, error) {
	section := mock.Section()
	values := make(map[string]Node, section.Len())
	for _, key := range section.Keys() {
		v, _ := section.Field(key)
		values[key] = v
	}
	return formatEntries("Mock", values, format)
}

func formatEntries(title string, values map[string]Node, format string) (string, error) {
	switch strings.ToLower(format) {
	case "", SummaryFormatText:
		return formatSummaryText(title, values)
	case SummaryFormatJSON:
		return formatSummaryJSON(values)
	default:
		return "", fmt.Errorf("unsupported summary format %q", format)
	}
}

func formatSummaryText(title string, values map[string]Node) (string, error) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s:\t%d keys\n", title, len(values))
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Key\tValue")

	for _, key := range Mapping(values).Keys() {
		fmt.Fprintf(tw, "%s\t%s\n", key, formatNodeValue(values[key]))
	}

	if err := tw.Flush(); err != nil {
		return "", fmt.Errorf("flush summary: %w", err)
	}
	return buf.String(), nil
}

func formatSummaryJSON(values map[string]Node) (string, error) {
	keys := Mapping(values).Keys()
	entries := make([]SummaryEntry, 0, len(keys))
	for _, key := range keys {
		v := values[key]
		entries = append(entries, SummaryEntry{
			Key:   key,
			Kind:  v.Kind().String(),
			Value: v.Interface(),
		})
	}

	payload := map[string]any{
		"count":   len(entries),
		"entries": entries,
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary json: %w", err)
	}
	return string(encoded), nil
}

func formatNodeValue(n Node) string {
	if items, ok := n.AsStrings(); ok {
		return strings.Join(items, ",")
	}
	return n.String()
}
