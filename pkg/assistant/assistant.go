package assistant

import "context"

// Assistant produces the coverage report of a repository.
type Assistant interface {
	Run(ctx context.Context) error
}
