package middleware

import (
	"fmt"

	"github.com/upb/reqlog/logger"
)

// UpdateFieldsFunc enriches a log field map before a record is emitted. The
// hook may mutate fields in place and return nil to keep the mutated map,
// or return a replacement map that is used wholesale. A non-nil empty map
// is a valid replacement, not "no result".
type UpdateFieldsFunc func(fields logger.Fields) logger.Fields

// UpdateResponseFieldsFunc is an UpdateFieldsFunc that also receives the
// error captured from the downstream handler chain, when there is one.
type UpdateResponseFieldsFunc func(fields logger.Fields, err error) logger.Fields

// runHook applies hook to fields, honoring the mutate-or-replace contract.
// A panicking hook is isolated: the panic is reported through lg at error
// level and the map passed in is returned, so one hook's failure never
// prevents other hooks or the surrounding emission.
func runHook(lg logger.Logger, hook UpdateFieldsFunc, fields logger.Fields) logger.Fields {
	if hook == nil {
		return fields
	}
	return runResponseHook(lg, func(f logger.Fields, _ error) logger.Fields {
		return hook(f)
	}, fields, nil)
}

// runResponseHook is runHook for hooks that receive the captured error.
func runResponseHook(lg logger.Logger, hook UpdateResponseFieldsFunc, fields logger.Fields, err error) (out logger.Fields) {
	if hook == nil {
		return fields
	}

	out = fields
	defer func() {
		if r := recover(); r != nil {
			lg.Emit(logger.ErrorLevel, logger.Fields{"panic": fmt.Sprint(r)}, "log fields hook panicked")
		}
	}()

	if replacement := hook(fields, err); replacement != nil {
		out = replacement
	}
	return out
}
