//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-link/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself, the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker for logs.
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

// Connection is the live push handle of one connected client.
// Push must give up once ctx is done, the delivery coordinator bounds it by DELIVERY_TIMEOUT.
// The websocket handle never blocks and returns at once.
type Connection interface {
	ID() string
	Push(ctx context.Context, msg domain.ReceivedMessage) error
}

// IRegistry maps a user to the connection it registered last.
type IRegistry interface {
	Register(userID string, conn Connection)
	Lookup(userID string) (Connection, bool)
	Unregister(userID string, conn Connection) bool
	Len() int
}

// IDeliveryCoordinator persists a chat message for both parties and pushes it live when possible.
type IDeliveryCoordinator interface {
	Deliver(ctx context.Context, in domain.InboundMessage) (domain.ChatMessage, bool)
}
