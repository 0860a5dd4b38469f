package domain

import "errors"

// ErrTokenNotFound is returned by a TokenStore that holds no token for a user.
var ErrTokenNotFound = errors.New("no stored token")
