package port

import "context"

// DocumentSource lists and fetches component files from one corpus.
type DocumentSource interface {
	// Name identifies the source in logs.
	Name() string
	// List returns the relative paths of every component file. Sources that
	// cannot enumerate their contents return domain.ErrListingUnsupported.
	List(ctx context.Context) ([]string, error)
	// PathFor returns the relative path a component code is stored under.
	PathFor(code string) (string, error)
	// Fetch returns the raw text of the file at a relative path.
	Fetch(ctx context.Context, path string) ([]byte, error)
}
