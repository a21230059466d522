// Package policy enforces resource ownership. A resource that does not exist
// and a resource owned by someone else produce the same error, so callers
// cannot probe for ids that belong to other accounts.
package policy

import (
	"context"
	"errors"
)

// ErrNotFound is the only error a caller sees for "absent" and "not yours".
var ErrNotFound = errors.New("resource not found")

// Ownable is implemented by every model that belongs to a user.
type Ownable interface {
	OwnerID() int64
}

// Owns reports whether userID owns resource. A nil resource is never owned.
func Owns(userID int64, resource Ownable) bool {
	if resource == nil || userID <= 0 {
		return false
	}
	return resource.OwnerID() == userID
}

// Authorize loads a resource and returns it only when userID owns it. Any
// load error matching notFound is collapsed into ErrNotFound; other errors
// are returned unchanged.
func Authorize[T Ownable](ctx context.Context, userID int64, load func(context.Context) (T, error), notFound ...error) (T, error) {
	var zero T
	if userID <= 0 {
		return zero, ErrNotFound
	}

	res, err := load(ctx)
	if err != nil {
		for _, nf := range notFound {
			if errors.Is(err, nf) {
				return zero, ErrNotFound
			}
		}
		return zero, err
	}

	if !Owns(userID, res) {
		return zero, ErrNotFound
	}
	return res, nil
}
