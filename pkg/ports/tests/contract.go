package tests

import (
	"testing"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/ports"
)

// LogSinkContractTest is a reusable test suite that verifies if an adapter
// complies with ports.LogSink. read returns what the sink persisted so far,
// one slice per row including the header row.
func LogSinkContractTest(t *testing.T, sink ports.LogSink, read func() [][]string) {
	t.Helper()

	rows := []domain.LogRow{
		{{Name: "subject_nr", Value: "1"}, {Name: "response", Value: "z"}},
		{{Name: "subject_nr", Value: "1"}, {Name: "response", Value: "m, n"}},
	}

	t.Run("Append_Flush", func(t *testing.T) {
		for _, row := range rows {
			if err := sink.Append(row); err != nil {
				t.Fatalf("unexpected error appending row: %v", err)
			}
		}
		if err := sink.Flush(); err != nil {
			t.Fatalf("unexpected error flushing: %v", err)
		}
		got := read()
		if len(got) != len(rows)+1 {
			t.Fatalf("expected %d rows including header, got %d", len(rows)+1, len(got))
		}
		if got[0][0] != "subject_nr" || got[0][1] != "response" {
			t.Errorf("header mismatch: %v", got[0])
		}
		if got[2][1] != "m, n" {
			t.Errorf("value with separator not preserved: %q", got[2][1])
		}
	})

	t.Run("Close", func(t *testing.T) {
		if err := sink.Close(); err != nil {
			t.Fatalf("unexpected error closing: %v", err)
		}
		if err := sink.Append(rows[0]); err == nil {
			t.Error("expected error appending after close, got nil")
		}
	})
}
