package validation

import "fmt"

// DuplicateFieldError is returned when a field name is registered twice.
type DuplicateFieldError struct {
	Field string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("field %q is already registered", e.Field)
}

// ConfigurationError reports an invalid registry: a rule referencing an
// undeclared field, an invalid field name, a predicate that does not
// compile. Configuration problems halt a run before any record is
// processed; no partial report is produced.
type ConfigurationError struct {
	Detail string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Detail)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Detail: fmt.Sprintf(format, args...)}
}
