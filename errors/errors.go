package errors

import "fmt"

var (
	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrEventRequired = fmt.Errorf("event name is required")
)
