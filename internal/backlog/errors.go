package backlog

import "fmt"

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// BatchError reports a persistence batch where some writes failed. Which writes
// landed is unknown; callers recover by resyncing, never by compensating.
type BatchError struct {
	Seq    int64
	Failed int
	Total  int
	First  error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d: %d of %d writes failed: %v", e.Seq, e.Failed, e.Total, e.First)
}

func (e *BatchError) Unwrap() error { return e.First }
