package tracing

// Span attribute keys.
const (
	AttrTick      = "chuck.tick"
	AttrPhase     = "chuck.phase"
	AttrTaskID    = "task.id"
	AttrAttempts  = "completion.attempts"
	AttrBatchSize = "completion.batch_size"
	AttrCommands  = "commands.count"
	AttrFailures  = "commands.failures"
)

// Span names.
const (
	SpanTick          = "manager.tick"
	SpanPhasePrefix   = "manager.phase."
	SpanReview        = "manager.review"
	SpanComplete      = "gateway.complete"
	SpanCompleteBatch = "gateway.complete_batch"
)
