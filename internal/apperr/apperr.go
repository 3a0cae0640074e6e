// Package apperr defines the error kinds returned by the fulfillment core.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind uint8

const (
	Internal Kind = iota
	NotFound
	InvalidArgument
	InsufficientStock
	InvalidState
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidArgument:
		return "invalid_argument"
	case InsufficientStock:
		return "insufficient_stock"
	case InvalidState:
		return "invalid_state"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound          = &Error{Kind: NotFound}
	ErrInvalidArgument   = &Error{Kind: InvalidArgument}
	ErrInsufficientStock = &Error{Kind: InsufficientStock}
	ErrInvalidState      = &Error{Kind: InvalidState}
	ErrConflict          = &Error{Kind: Conflict}
)

type Error struct {
	Kind     Kind
	Op       string
	Entity   string
	ID       string
	Quantity *int64
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Entity != "" {
		fmt.Fprintf(&b, " %s", e.Entity)
		if e.ID != "" {
			fmt.Fprintf(&b, " %s", e.ID)
		}
	}
	if e.Quantity != nil {
		fmt.Fprintf(&b, " (quantity %d)", *e.Quantity)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Kind.GRPCCode(), e.Error())
}

func (k Kind) GRPCCode() codes.Code {
	switch k {
	case NotFound:
		return codes.NotFound
	case InvalidArgument:
		return codes.InvalidArgument
	case InsufficientStock, InvalidState:
		return codes.FailedPrecondition
	case Conflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func NewNotFound(op, entity, id string) error {
	return &Error{Kind: NotFound, Op: op, Entity: entity, ID: id}
}

func NewInvalidArgument(op, entity, id string, qty int64, msg string) error {
	return &Error{Kind: InvalidArgument, Op: op, Entity: entity, ID: id, Quantity: &qty, Msg: msg}
}

func NewInsufficientStock(op, productID string, requested, onHand int64) error {
	return &Error{
		Kind:     InsufficientStock,
		Op:       op,
		Entity:   "product",
		ID:       productID,
		Quantity: &requested,
		Msg:      fmt.Sprintf("on hand %d", onHand),
	}
}

func NewInvalidState(op, entity, id, msg string) error {
	return &Error{Kind: InvalidState, Op: op, Entity: entity, ID: id, Msg: msg}
}

func NewConflict(op, entity, id, msg string) error {
	return &Error{Kind: Conflict, Op: op, Entity: entity, ID: id, Msg: msg}
}
