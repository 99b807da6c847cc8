package types

// Filter is a prototype for functions that select container records for
// checking or updating.
type Filter func(Record) bool
