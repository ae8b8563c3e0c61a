package pve

import "errors"

// ErrNotFound reports a resource that does not exist on the control
// plane. Repositories wrap it so services can detect the condition with
// errors.Is before any mutation is attempted.
var ErrNotFound = errors.New("resource not found")
