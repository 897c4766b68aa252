package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordGeneration(t *testing.T) {
	generationsTotal.Reset()

	RecordGeneration("generate", OutcomeSuccess)
	RecordGeneration("generate", OutcomeSuccess)
	RecordGeneration("chat", OutcomeNoChange)

	if got := testutil.ToFloat64(generationsTotal.WithLabelValues("generate", OutcomeSuccess)); got != 2 {
		t.Errorf("Expected 2 successful generations, got %f", got)
	}
	if got := testutil.ToFloat64(generationsTotal.WithLabelValues("chat", OutcomeNoChange)); got != 1 {
		t.Errorf("Expected 1 no-change chat, got %f", got)
	}
}

func TestRecordScheduleMutation(t *testing.T) {
	scheduleMutationsTotal.Reset()

	RecordScheduleMutation("move")
	RecordScheduleMutation("delete")
	RecordScheduleMutation("move")

	if got := testutil.ToFloat64(scheduleMutationsTotal.WithLabelValues("move")); got != 2 {
		t.Errorf("Expected 2 move mutations, got %f", got)
	}
}

func TestRecordParseFailureAndExport(t *testing.T) {
	parseFailuresTotal.Reset()
	calendarExportsTotal.Reset()

	RecordParseFailure("generate")
	RecordCalendarExport(OutcomeFailed)

	if got := testutil.ToFloat64(parseFailuresTotal.WithLabelValues("generate")); got != 1 {
		t.Errorf("Expected 1 parse failure, got %f", got)
	}
	if got := testutil.ToFloat64(calendarExportsTotal.WithLabelValues(OutcomeFailed)); got != 1 {
		t.Errorf("Expected 1 failed export, got %f", got)
	}
}

func TestRecordGenerationDuration(t *testing.T) {
	generationDuration.Reset()

	RecordGenerationDuration("generate", "gpt-4.1-nano", 1500*time.Millisecond)

	if n := testutil.CollectAndCount(generationDuration); n != 1 {
		t.Errorf("Expected 1 histogram series, got %d", n)
	}
}

func TestRecordDLQPurged(t *testing.T) {
	before := testutil.ToFloat64(dlqPurgedTotal)
	RecordDLQPurged(3)
	if got := testutil.ToFloat64(dlqPurgedTotal) - before; got != 3 {
		t.Errorf("Expected 3 purged, got %f", got)
	}
}
