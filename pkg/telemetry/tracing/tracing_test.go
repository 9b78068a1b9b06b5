package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jeajar/scruffy/pkg/config"
)

func newTestTracer(t *testing.T, sampler string) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewWithExporter(&config.TracingConfig{
		Enabled:     true,
		Sampler:     sampler,
		SampleRatio: 1,
		ServiceName: "scruffy-test",
	}, "test", exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exporter
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.TracingConfig
		enabled bool
		wantErr bool
	}{
		{name: "nil config", wantErr: true},
		{name: "disabled", cfg: &config.TracingConfig{}, enabled: false},
		{
			name: "otlp",
			cfg: &config.TracingConfig{
				Enabled:  true,
				Sampler:  "always",
				Exporter: "otlp",
				Endpoint: "localhost:4317",
				OTLP:     config.OTLPConfig{Insecure: true},
			},
			enabled: true,
		},
		{
			name:    "unsupported exporter",
			cfg:     &config.TracingConfig{Enabled: true, Exporter: "zipkin", Endpoint: "localhost:9411"},
			wantErr: true,
		},
		{
			name:    "missing endpoint",
			cfg:     &config.TracingConfig{Enabled: true, Exporter: "otlp"},
			wantErr: true,
		},
		{
			name:    "bad sampler",
			cfg:     &config.TracingConfig{Enabled: true, Sampler: "sometimes", Exporter: "otlp", Endpoint: "localhost:4317"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.cfg, "test")
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer tracer.Shutdown(context.Background())
			if tracer.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.enabled)
			}
		})
	}
}

func TestNilTracer(t *testing.T) {
	var tracer *Tracer
	if tracer.Enabled() {
		t.Error("nil tracer reports enabled")
	}
	ctx, span := tracer.Start(context.Background(), "noop")
	span.End()
	if id := TraceID(ctx); id != "" {
		t.Errorf("TraceID() = %q, want empty", id)
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSpans(t *testing.T) {
	tracer, exporter := newTestTracer(t, SamplerAlways)

	ctx, parent := tracer.Start(context.Background(), "job.process")
	SetRunAttributes(parent, "process", "run-1", "schedule")
	if TraceID(ctx) == "" || SpanID(ctx) == "" {
		t.Fatal("expected trace and span IDs in context")
	}

	_, child := tracer.Start(ctx, "loan")
	SetItemAttributes(child, 42, "movie", "Heat")
	SetError(child, errors.New("radarr: 500"))
	child.End()

	SetRunOutcome(parent, "partial", 1, false)
	parent.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}

	loan, job := spans[0], spans[1]
	if loan.Name != "loan" || job.Name != "job.process" {
		t.Fatalf("span names = %q, %q", loan.Name, job.Name)
	}
	if loan.Parent.SpanID() != job.SpanContext.SpanID() {
		t.Error("loan span is not a child of the job span")
	}
	if loan.Status.Code != codes.Error {
		t.Errorf("loan status = %v, want Error", loan.Status.Code)
	}
	if len(loan.Events) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
	if !hasAttr(loan.Attributes, attribute.Int(AttrRequestID, 42)) {
		t.Errorf("loan attributes = %v", loan.Attributes)
	}
	if !hasAttr(job.Attributes, attribute.String(AttrOutcome, "partial")) {
		t.Errorf("job attributes = %v", job.Attributes)
	}
	if job.Status.Code != codes.Error {
		t.Errorf("job status = %v, want Error", job.Status.Code)
	}
}

func TestNeverSampler(t *testing.T) {
	tracer, exporter := newTestTracer(t, SamplerNever)

	_, span := tracer.Start(context.Background(), "dropped")
	span.End()

	if n := len(exporter.GetSpans()); n != 0 {
		t.Errorf("got %d spans, want 0", n)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{strategy: "", ratio: 0},
		{strategy: SamplerAlways},
		{strategy: SamplerNever},
		{strategy: SamplerRatio, ratio: 0.5},
		{strategy: SamplerRatio, ratio: 1.5, wantErr: true},
		{strategy: SamplerRatio, ratio: -0.1, wantErr: true},
		{strategy: "sometimes", wantErr: true},
	}
	for _, tt := range tests {
		_, err := createSampler(tt.strategy, tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
		}
	}
}

func TestPropagation(t *testing.T) {
	tracer, _ := newTestTracer(t, SamplerAlways)

	ctx, span := tracer.Start(context.Background(), "client")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("traceparent header not injected")
	}

	remote := Extract(context.Background(), headers)
	if got, want := TraceID(remote), TraceID(ctx); got != want {
		t.Errorf("extracted trace ID = %q, want %q", got, want)
	}
}

func TestSetHTTPAttributes(t *testing.T) {
	tracer, exporter := newTestTracer(t, SamplerAlways)

	_, ok := tracer.Start(context.Background(), "ok")
	SetHTTPAttributes(ok, http.MethodGet, "/api/v1/schedules", http.StatusOK)
	ok.End()

	_, failed := tracer.Start(context.Background(), "failed")
	SetHTTPAttributes(failed, http.MethodPost, "/api/v1/jobs/{jobType}/run", http.StatusInternalServerError)
	failed.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Status.Code == codes.Error {
		t.Error("2xx response marked as error")
	}
	if spans[1].Status.Code != codes.Error {
		t.Error("5xx response not marked as error")
	}
	if !hasAttr(spans[0].Attributes, attribute.String(AttrHTTPRoute, "/api/v1/schedules")) {
		t.Errorf("attributes = %v", spans[0].Attributes)
	}
}

func hasAttr(attrs []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, kv := range attrs {
		if kv.Key == want.Key && kv.Value == want.Value {
			return true
		}
	}
	return false
}
