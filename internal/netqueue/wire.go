package netqueue

import (
	"phredavg/internal/chunk"
	"phredavg/internal/phred"
)

// Names of the two queues a coordinator exposes.
const (
	JobQueueName    = "job_queue"
	ResultQueueName = "result_queue"
)

// Envelope kinds.
const (
	KindJob    = "job"
	KindResult = "result"
	KindEmpty  = "empty"
	KindPill   = "pill" // poison pill: outside the Job domain, termination only
)

// Job is one chunk task handed to a remote worker under a lease.
type Job struct {
	ID    string     `json:"id"`
	Lease string     `json:"lease"`
	Task  chunk.Task `json:"task"`
}

// Result is a job together with the partial it produced.
type Result struct {
	Job     Job            `json:"job"`
	Partial *phred.Partial `json:"partial"`
}

// Envelope is the body of every queue request and response.
type Envelope struct {
	Kind   string  `json:"kind"`
	Job    *Job    `json:"job,omitempty"`
	Result *Result `json:"result,omitempty"`
}
