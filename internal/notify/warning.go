package notify

// Warning reports a failed best-effort dispatch attached to an otherwise
// successful operation. The triggering write has already committed and is
// not rolled back; callers surface the warning instead of failing.
type Warning struct {
	Kind EventKind
	Err  error
}

// Message is the caller-facing description of the degraded dispatch.
func (w *Warning) Message() string {
	return "notification delivery failed for " + string(w.Kind)
}
