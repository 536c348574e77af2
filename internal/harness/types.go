package harness

// TraceEvent is one storage call, core delivery or step fault in the trace.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Step int    `json:"step"` // 1-based index of the step that caused it
	Op   string `json:"op"`   // read | write | clear | history | config | fault
	Slot string `json:"slot,omitempty"`
	Text string `json:"text,omitempty"`

	// Result is found/absent/error for reads, ok/error for writes,
	// delivered/present/absent for deliveries, and the error codes for faults.
	Result string `json:"result"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every traced event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State maps slot names to their final stored text.
	// Unwritten slots are omitted.
	State map[string]string `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
