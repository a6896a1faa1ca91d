package ego

import "fmt"

// DuplicateEgoError is returned by Registry.Add when the name is already
// registered.
type DuplicateEgoError struct {
	Name string
}

func (e *DuplicateEgoError) Error() string {
	return fmt.Sprintf("ego %q is already registered", e.Name)
}

// UnknownEgoError is returned by Registry.Get when no ego exists under the
// requested name.
type UnknownEgoError struct {
	Name string
}

func (e *UnknownEgoError) Error() string {
	return fmt.Sprintf("ego %q is not registered", e.Name)
}
