package model

import "github.com/hashicorp/go-multierror"

// releaser holds teardown funcs of runtime resources. release runs them in
// reverse order of registration, so a resource is always freed before the
// one it was created from.
type releaser []func() error

func (r *releaser) add(f func() error) {
	*r = append(*r, f)
}

// release runs every teardown once, aggregating their errors.
func (r *releaser) release() error {
	var result *multierror.Error
	for i := len(*r) - 1; i >= 0; i-- {
		if err := (*r)[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	*r = nil

	return result.ErrorOrNil()
}
