package tracing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/exectime/internal/process"
	"github.com/torosent/exectime/internal/runner"
)

// Attribute keys.
const (
	AttrRunID      = attribute.Key("exectime.run_id")
	AttrCommand    = attribute.Key("exectime.command")
	AttrIterations = attribute.Key("exectime.iterations")
	AttrTrial      = attribute.Key("exectime.trial")
	AttrWarmup     = attribute.Key("exectime.warmup")
	AttrElapsedMs  = attribute.Key("exectime.elapsed_ms")
	AttrExitCode   = attribute.Key("process.exit.code")
	AttrAbnormal   = attribute.Key("exectime.abnormal_exit")
)

// StartRunSpan starts the span that parents every trial of a run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, cmd process.Command, iterations int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "benchmark "+cmd.Program(),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		AttrCommand.String(cmd.String()),
		AttrIterations.Int(iterations),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Environ renders the trace context of ctx as environment entries
// (TRACEPARENT, TRACESTATE, BAGGAGE) for a child process.
func Environ(ctx context.Context) []string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	env := make([]string, 0, len(carrier))
	for k, v := range carrier {
		env = append(env, strings.ToUpper(k)+"="+v)
	}
	sort.Strings(env)
	return env
}

// TrialObserver emits one span per trial.
type TrialObserver struct {
	tracer trace.Tracer
}

// NewTrialObserver returns an observer that starts trial spans on tracer.
func NewTrialObserver(tracer trace.Tracer) *TrialObserver {
	return &TrialObserver{tracer: tracer}
}

// TrialStarted implements runner.Observer.
func (o *TrialObserver) TrialStarted(ctx context.Context, index int, warmup bool) context.Context {
	name := fmt.Sprintf("trial %d", index)
	if warmup {
		name = fmt.Sprintf("warmup %d", index)
	}
	ctx, span := o.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(AttrTrial.Int(index), AttrWarmup.Bool(warmup))
	return ctx
}

// TrialFinished implements runner.Observer.
func (o *TrialObserver) TrialFinished(ctx context.Context, trial runner.Trial, err error) {
	span := trace.SpanFromContext(ctx)
	var attrs []attribute.KeyValue
	if err == nil {
		attrs = append(attrs,
			AttrElapsedMs.Float64(float64(trial.Elapsed.Microseconds())/1000),
			AttrExitCode.Int(trial.Result.ExitCode),
			AttrAbnormal.Bool(trial.Result.Abnormal()),
		)
	}
	EndSpan(span, err, attrs...)
}

var _ runner.Observer = (*TrialObserver)(nil)
