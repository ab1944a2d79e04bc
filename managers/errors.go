package managers

import "fmt"

// TranslationError reports a query that cannot be turned into SQL. It is
// always raised before any statement reaches the database.
type TranslationError struct {
	Construct string // the operator or expression at fault
	Err       error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate %s: %v", e.Construct, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

func translationError(construct fmt.Stringer, err error) error {
	return &TranslationError{Construct: construct.String(), Err: err}
}
