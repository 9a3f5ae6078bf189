package telemetry

// Span names used for instrumentation.
const (
	TracerName = "github.com/samirrijal/hiitroute"

	SpanSessionTransition = "session.transition"
	SpanSessionFinalize   = "session.finalize"
	SpanRouteSave         = "route.save"
	SpanRouteExport       = "route.export"
)
