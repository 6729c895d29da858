package port

import "context"

// FileOperation is the kind of change seen on a watched file.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

// FileEvent represents a change to a component file.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileWatcher monitors directory trees for component file changes.
type FileWatcher interface {
	Watch(ctx context.Context, dirs ...string) (<-chan FileEvent, error)
	Stop() error
}
