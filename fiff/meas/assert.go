package meas

import (
	"fmt"

	"github.com/batchatco/go-native-fiff/internal"
	"github.com/batchatco/go-thrower"
)

var logger = internal.Default()

// Panics with err wrapped around a formatted message
func failf(err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Error(msg)
	thrower.Throw(fmt.Errorf("%w: %s", err, msg))
	panic("never gets here")
}

// Asserts with given error and message
func assertf(condition bool, err error, format string, args ...any) {
	if condition {
		return
	}
	failf(err, format, args...)
}
