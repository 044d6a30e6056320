package paymentmonitor

import "errors"

var errNoAccounts = errors.New("parsed transaction has no account keys")
