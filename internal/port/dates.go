package port

import "context"

// CommitDateResolver looks up the date a set-2 file was last changed.
// File names are base names such as "ACN.cif"; dates are YYYY-MM-DD.
type CommitDateResolver interface {
	// CommitDates resolves many files at once. Files without a known date
	// are missing from the result.
	CommitDates(ctx context.Context, fileNames []string) (map[string]string, error)
	// CommitDate resolves a single file. A file without history yields "";
	// a failed lookup is an error and must not be remembered as a miss.
	CommitDate(ctx context.Context, fileName string) (string, error)
}

// DateCache remembers resolved dates across pairs and runs. An empty date
// is a remembered miss.
type DateCache interface {
	Get(ctx context.Context, key string) (date string, found bool, err error)
	Put(ctx context.Context, key, date string) error
}
