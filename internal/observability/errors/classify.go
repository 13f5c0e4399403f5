// Package errors normalizes error values into stable class names for
// metric and log tagging.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"
)

// Classify returns a tag-safe class name for err, derived from the innermost
// wrapped error's concrete type. "*pgconn.PgError" becomes "pgconn_pgerror".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for {
		inner := goerrors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}

	name := fmt.Sprintf("%T", err)
	name = strings.ToLower(strings.NewReplacer("*", "", ".", "_").Replace(name))
	if name == "" {
		return "unknown"
	}
	return name
}
