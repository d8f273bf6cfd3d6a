package dof

import "errors"

// ErrSizeMismatch is returned by Unzip when the flat vector's length
// does not match the layout's total size.
var ErrSizeMismatch = errors.New("dof: unzip size does not match layout")
