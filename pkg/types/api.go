package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	Error string `json:"error"`
	// HTTP status code.
	Code int `json:"code"`
}

// QueueStatus describes one dispatcher queue.
type QueueStatus struct {
	// Queue priority class: high or normal.
	Priority string `json:"priority"`
	// Events currently waiting.
	Depth int `json:"depth"`
	// Largest depth observed since start.
	MaxDepth int `json:"max_depth"`
	// Fixed capacity.
	Capacity int `json:"capacity"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	// Whether the dispatch loop is running.
	Running bool `json:"running"`
	// Events accepted into a queue.
	Published uint64 `json:"published"`
	// Events taken off a queue and delivered.
	Dispatched uint64 `json:"dispatched"`
	// Observer callbacks invoked.
	Notifications uint64 `json:"notifications"`
	// Events dropped because the queue was full.
	Dropped uint64 `json:"dropped"`
	// Publishes rejected before init or after stop.
	NotReady uint64 `json:"not_ready"`
	// Events consumed with nobody subscribed.
	NoObservers uint64 `json:"no_observers"`
	// Failed integrity checks.
	InvalidModel uint64 `json:"invalid_model"`
	// Recovered observer panics.
	ObserverPanics uint64 `json:"observer_panics"`
	// Publishes rejected after stop.
	AfterStop uint64 `json:"after_stop"`
	// Queue details, high first.
	Queues []QueueStatus `json:"queues"`
	// Uptime of the process in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// ErrorCount is the number of reports seen for one error code.
type ErrorCount struct {
	Code  string `json:"code"`
	Count uint64 `json:"count"`
	Fatal bool   `json:"fatal"`
}

// ErrorsResponse is returned by GET /errors.
type ErrorsResponse struct {
	Errors []ErrorCount `json:"errors"`
	// Last reported error message, if any.
	LastError string `json:"last_error,omitempty"`
	// RFC 3339 time of the last report.
	LastErrorAt string `json:"last_error_at,omitempty"`
	// Log lines withheld by the error log rate limit.
	SuppressedLogs uint64 `json:"suppressed_logs"`
}
