package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Engine spans started inside a handler join the request's trace.
func TestStartSpanJoinsRequestTrace(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("whatodo-test"))
	r.HandleFunc("/api/v1/schedule/generate", func(w http.ResponseWriter, r *http.Request) {
		_, span := StartSpan(r.Context(), "orchestrator.generate", attribute.String("operation", "generate"))
		span.End()
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/generate", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	want := "4bf92f3577b34da6a3ce929d0e0e4736"
	for _, s := range spans {
		if s.SpanContext.TraceID().String() != want {
			t.Errorf("span %s trace id = %s, want %s", s.Name, s.SpanContext.TraceID(), want)
		}
	}
	if spans[0].Name != "orchestrator.generate" {
		t.Errorf("first ended span = %s", spans[0].Name)
	}
}
