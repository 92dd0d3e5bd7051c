// Package events provides a small in-process publish/subscribe bus for
// pipeline notifications. Typed kinds and payloads replace ad hoc
// callbacks between the processor and anything that wants to react to
// completed work.
package events
