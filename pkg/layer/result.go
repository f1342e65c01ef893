package layer

// Status is the outcome of a load attempt.
type Status int

const (
	// Loaded means the layer is available in the store.
	Loaded Status = iota
	// Cancelled means the caller abandoned the load. Not an error.
	Cancelled
	// Failed means the source rejected the request or the data was invalid.
	Failed
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of a load: a layer, a cancellation, or a
// failure with its reason.
type Result struct {
	Status Status
	Layer  *Layer
	Err    error
}

// LoadedResult wraps a successfully loaded layer.
func LoadedResult(l *Layer) Result { return Result{Status: Loaded, Layer: l} }

// CancelledResult reports an abandoned load.
func CancelledResult() Result { return Result{Status: Cancelled} }

// FailedResult reports a failed load.
func FailedResult(err error) Result { return Result{Status: Failed, Err: err} }

// OK reports whether the result carries a layer.
func (r Result) OK() bool { return r.Status == Loaded && r.Layer != nil }
