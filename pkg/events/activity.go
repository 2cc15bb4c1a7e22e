package events

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

const (
	maxActivityLogBytes = 10 * 1024 * 1024
	// After hitting the cap, keep the most recent half so every append
	// does not trigger another truncation.
	activityKeepBytes = maxActivityLogBytes / 2
)

// AppendActivity appends a markdown block to the human-readable
// activity log under a file lock, truncating the oldest half once the
// log outgrows maxActivityLogBytes.
func AppendActivity(path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create activity log directory")
	}

	err := lockedfile.Transform(path, func(data []byte) ([]byte, error) {
		var buf bytes.Buffer
		buf.Write(data)
		buf.WriteString("\n" + content + "\n")

		out := buf.Bytes()
		if len(out) > maxActivityLogBytes {
			out = truncateToRecent(out, activityKeepBytes)
		}
		return out, nil
	})
	return errors.Wrap(err, "failed to append to activity log")
}

// ActivityEntry renders an event as the markdown block AppendActivity
// expects.
func ActivityEntry(event Event) string {
	return fmt.Sprintf("## %s [%s]\n%s",
		event.Timestamp.Format(time.RFC3339), event.Type, event.Description)
}

// truncateToRecent drops everything before the last keep bytes,
// realigned to the next line boundary so the log never starts
// mid-entry.
func truncateToRecent(data []byte, keep int) []byte {
	if len(data) <= keep {
		return data
	}
	trimmed := data[len(data)-keep:]
	if idx := bytes.IndexByte(trimmed, '\n'); idx >= 0 && idx+1 < len(trimmed) {
		trimmed = trimmed[idx+1:]
	}
	out := make([]byte, 0, len(trimmed))
	return append(out, trimmed...)
}
