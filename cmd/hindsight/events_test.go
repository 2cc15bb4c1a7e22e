package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jingkaihe/hindsight/pkg/events"
)

func TestParseTimeSpec(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		wantErr  bool
		validate func(time.Time) bool
	}{
		{
			name:    "empty string",
			spec:    "",
			wantErr: false,
			validate: func(t time.Time) bool {
				return t.IsZero()
			},
		},
		{
			name:    "absolute date",
			spec:    "2026-08-01",
			wantErr: false,
			validate: func(t time.Time) bool {
				return t.Year() == 2026 && t.Month() == 8 && t.Day() == 1
			},
		},
		{
			name:    "1 day ago",
			spec:    "1d",
			wantErr: false,
			validate: func(t time.Time) bool {
				return t.Before(time.Now()) && t.After(time.Now().AddDate(0, 0, -2))
			},
		},
		{
			name:    "1 week ago",
			spec:    "1w",
			wantErr: false,
			validate: func(t time.Time) bool {
				return t.Before(time.Now()) && t.After(time.Now().AddDate(0, 0, -8))
			},
		},
		{
			name:    "1 hour ago",
			spec:    "1h",
			wantErr: false,
			validate: func(t time.Time) bool {
				return t.Before(time.Now()) && t.After(time.Now().Add(-2*time.Hour))
			},
		},
		{
			name:    "invalid format",
			spec:    "invalid",
			wantErr: true,
		},
		{
			name:    "invalid unit",
			spec:    "1x",
			wantErr: true,
		},
		{
			name:    "invalid number",
			spec:    "xd",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseTimeSpec(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseTimeSpec() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tt.validate != nil && !tt.validate(result) {
				t.Errorf("parseTimeSpec() result validation failed for spec %s, got %v", tt.spec, result)
			}
		})
	}
}

func TestParseTimeSpecWithClock(t *testing.T) {
	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tests := []struct {
		name     string
		spec     string
		expected time.Time
	}{
		{
			name:     "days subtract whole days",
			spec:     "3d",
			expected: time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "hours subtract hours",
			spec:     "5h",
			expected: time.Date(2026, 8, 22, 7, 0, 0, 0, time.UTC),
		},
		{
			name:     "weeks subtract seven days each",
			spec:     "2w",
			expected: time.Date(2026, 8, 8, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseTimeSpecWithClock(tt.spec, clock)
			if err != nil {
				t.Fatalf("parseTimeSpecWithClock() error = %v", err)
			}
			if !result.Equal(tt.expected) {
				t.Errorf("parseTimeSpecWithClock() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{
			name:     "shorter than limit",
			input:    "hello",
			limit:    10,
			expected: "hello",
		},
		{
			name:     "exactly at limit",
			input:    "hello",
			limit:    5,
			expected: "hello",
		},
		{
			name:     "longer than limit",
			input:    "hello world",
			limit:    8,
			expected: "hello...",
		},
		{
			name:     "tiny limit cuts hard",
			input:    "hello",
			limit:    2,
			expected: "he",
		},
		{
			name:     "multibyte runes are not split",
			input:    "héllo wörld grüße",
			limit:    10,
			expected: "héllo w...",
		},
		{
			name:     "empty string",
			input:    "",
			limit:    10,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncateText(tt.input, tt.limit)
			if result != tt.expected {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tt.input, tt.limit, result)
			}
		})
	}
}

func TestDisplayEventsTable(t *testing.T) {
	listed := []events.Event{
		{
			ID:          "ev-2",
			Timestamp:   time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC),
			Type:        "api_call",
			Description: "called the billing endpoint",
		},
		{
			ID:          "ev-1",
			Timestamp:   time.Date(2026, 8, 19, 9, 15, 0, 0, time.UTC),
			Type:        "testing",
			Description: "ran unit tests",
		},
	}

	var buf bytes.Buffer
	displayEventsTable(&buf, listed)
	output := buf.String()

	for _, want := range []string{
		"Timestamp",
		"Type",
		"Description",
		"ID",
		"2026-08-20 14:30:00",
		"api_call",
		"called the billing endpoint",
		"ev-2",
		"2026-08-19 09:15:00",
		"testing",
		"ev-1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("displayEventsTable() output missing %q:\n%s", want, output)
		}
	}
}

func TestDisplayEventsJSON(t *testing.T) {
	listed := []events.Event{
		{
			ID:          "ev-1",
			Timestamp:   time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC),
			Type:        "api_call",
			Description: "called the billing endpoint",
			Metadata:    map[string]any{"endpoint": "/billing"},
		},
	}

	var buf bytes.Buffer
	displayEventsJSON(&buf, listed)

	var output EventsJSONOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}

	if output.Total != 1 {
		t.Errorf("Expected total 1, got %d", output.Total)
	}
	if len(output.Events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(output.Events))
	}
	if output.Events[0].ID != "ev-1" {
		t.Errorf("Expected ID ev-1, got %s", output.Events[0].ID)
	}
	if output.Events[0].Type != "api_call" {
		t.Errorf("Expected type api_call, got %s", output.Events[0].Type)
	}
}

func TestDisplayEventsJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	displayEventsJSON(&buf, nil)

	output := buf.String()
	if !strings.Contains(output, `"events": []`) {
		t.Errorf("Expected empty events array, not null:\n%s", output)
	}

	var parsed EventsJSONOutput
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if parsed.Total != 0 {
		t.Errorf("Expected total 0, got %d", parsed.Total)
	}
}
