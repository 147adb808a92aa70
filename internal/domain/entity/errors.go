package entity

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned by metadata fetchers when the remote service throttles the request.
var ErrRateLimited = errors.New("rate limited")

// ErrUnknownNetwork is returned when a network identifier has no definition.
var ErrUnknownNetwork = errors.New("unknown network")

// EncodingError reports bad input to the call encoder. The batch is never built.
type EncodingError struct {
	Method   string
	ArgIndex int // -1 when the error is not tied to one argument
	Reason   string
}

func (e *EncodingError) Error() string {
	if e.ArgIndex >= 0 {
		return fmt.Sprintf("encode %s: argument %d: %s", e.Method, e.ArgIndex, e.Reason)
	}
	return fmt.Sprintf("encode %s: %s", e.Method, e.Reason)
}

// NetworkError reports a transport or RPC failure that aborted a whole batch.
// The whole batch is safe to retry.
type NetworkError struct {
	Network string
	Op      string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Network, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ReadError records a failure for one network inside a multi-network read.
type ReadError struct {
	NetworkName string `json:"networkName"`
	ChainID     string `json:"chainId,omitempty"`
	Message     string `json:"message"`
}
