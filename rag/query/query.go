// Package query implements the query-pipeline unit: a small, runtime-guarded
// wrapper around a user's question as it moves through transformation,
// retrieval, and answering. Go has no session types, so the state tag is
// enforced by checking it on every transition and returning a typed error
// when a transition is attempted out of order.
package query

import (
	"fmt"

	"github.com/basalt-ai/basalt/schema"
)

// State tags where a Query sits in the pipeline.
type State string

const (
	// Pending is the initial state: only the original text is set.
	Pending State = "pending"
	// Retrieved means Documents have been populated.
	Retrieved State = "retrieved"
	// Answered means an answer has been generated from the retrieved
	// Documents.
	Answered State = "answered"
)

// StateError reports a transition attempted against the wrong State.
type StateError struct {
	Op   string
	Want State
	Have State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("query: %s: expected state %q, got %q", e.Op, e.Want, e.Have)
}

// Query carries a question through transformation, retrieval, and answering.
// Its zero value is not usable; construct with New.
type Query struct {
	Text            string
	Subqueries      []string
	Embedding       []float32
	SparseEmbedding map[string]float32
	Documents       []schema.Document
	Answer          string

	state State
}

// New returns a Query in the Pending state for text.
func New(text string) *Query {
	return &Query{Text: text, state: Pending}
}

// State returns the Query's current state tag.
func (q *Query) State() State {
	return q.state
}

// Transform attaches subqueries and/or an embedding to a Pending Query. It
// may be called more than once while still Pending; it does not advance the
// state, since transformation and retrieval are independent concerns.
func (q *Query) Transform(subqueries []string, embedding []float32) error {
	if q.state != Pending {
		return &StateError{Op: "transform", Want: Pending, Have: q.state}
	}
	if subqueries != nil {
		q.Subqueries = subqueries
	}
	if embedding != nil {
		q.Embedding = embedding
	}
	return nil
}

// Retrieve attaches docs and advances a Pending Query to Retrieved.
func (q *Query) Retrieve(docs []schema.Document) error {
	if q.state != Pending {
		return &StateError{Op: "retrieve", Want: Pending, Have: q.state}
	}
	q.Documents = docs
	q.state = Retrieved
	return nil
}

// Complete attaches an answer and advances a Retrieved Query to Answered.
func (q *Query) Complete(answer string) error {
	if q.state != Retrieved {
		return &StateError{Op: "complete", Want: Retrieved, Have: q.state}
	}
	q.Answer = answer
	q.state = Answered
	return nil
}
