package rpc

import (
	"errors"
	"net"
	"strings"
)

// Solana JSON-RPC error codes that resolve on their own.
const (
	codeNodeBehind              = -32005
	codeTransactionNotAvailable = -32004
	codeBlockNotAvailable       = -32007
)

// IsTransient classifies an RPC failure as retriable. Transient failures are
// retried on the next scan tick and never mark an invoice failed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeNodeBehind, codeTransactionNotAvailable, codeBlockNotAvailable:
			return true
		}
		return false
	}

	msg := err.Error()
	if strings.Contains(msg, "RPC request failed with status") {
		if strings.Contains(msg, "429") {
			return true
		}
		if strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
			strings.Contains(msg, "503") || strings.Contains(msg, "504") {
			return true
		}
		return false
	}
	if strings.Contains(msg, "failed to parse JSON response") {
		return true
	}
	if strings.Contains(msg, "request failed") || strings.Contains(msg, "connection refused") {
		return true
	}

	return false
}
