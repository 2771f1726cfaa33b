//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"office-relay/domain"
)

// Emitter is the fan-out side of the pub/sub transport.
// Both operations are fire-and-forget: they hand the event to the
// transport's publish queue and return immediately. Delivery is never
// awaited or confirmed, and emitting to a room nobody joined is a silent
// no-op, not an error.
type Emitter interface {
	EmitToRoom(room, event string, payload any)
	EmitToAll(event string, payload any)
}

// TimerReader exposes read access to the live attendance timers.
// Only the ingress translator writes them; readers get a consistent copy.
type TimerReader interface {
	Get(employeeID string) (domain.SessionRecord, bool)
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
