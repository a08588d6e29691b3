package core

import (
	"errors"
	"fmt"

	"github.com/agenthands/leadblitz/internal/store"
)

// Kind classifies a service error for the transport layer.
type Kind int

const (
	KindInvalid Kind = iota + 1
	KindNotFound
	KindForbidden
	KindPaymentRequired
	KindTimeout
	KindUnavailable
)

// Error is a failure whose message is safe to show to the user.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AsError unwraps err into an *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func invalidf(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func notFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func paymentf(format string, args ...interface{}) error {
	return &Error{Kind: KindPaymentRequired, Message: fmt.Sprintf(format, args...)}
}

// lookup turns a store miss into miss.
func lookup(err error, miss *Error) error {
	if store.IsNotFound(err) {
		return miss
	}
	return err
}

var (
	ErrNoActiveCampaign = &Error{Kind: KindInvalid, Message: "No active campaign"}
	ErrNoMoreLeads      = &Error{Kind: KindInvalid, Message: "No more leads available"}
	ErrNoResults        = &Error{Kind: KindNotFound, Message: "No businesses found for this search. Please check the location spelling or try a different search."}
	ErrSearchTimeout    = &Error{Kind: KindTimeout, Message: "Search timed out. Google Places API did not respond in time. Please try again."}
	ErrLeadNotFound     = &Error{Kind: KindNotFound, Message: "Lead not found"}
	ErrCampaignNotFound = &Error{Kind: KindNotFound, Message: "Campaign not found"}
)
