// Package types defines the task, clock and error types shared by the executor packages
package types

// Task is a unit of deferred work. It takes no arguments and returns nothing;
// any result is published through side effects owned by the task itself.
type Task func()

// ErrorHandler receives failures raised by task bodies. The returned error is
// only logged; it never reaches the producer.
type ErrorHandler func(err error) error

// State defines the lifecycle state of an executor
type State int32

const (
	// StateCreated executor has been created but workers are not running
	StateCreated State = iota
	// StateRunning workers are claiming tasks
	StateRunning
	// StateShuttingDown the running flag has been cleared and workers are joining
	StateShuttingDown
	// StateStopped all workers have exited
	StateStopped
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
