package core

import "errors"

var (
	ErrInvalidLogin         = errors.New("invalid.login")
	ErrInvalidToken         = errors.New("invalid.token")
	ErrConfiguration        = errors.New("invalid configuration")
	ErrStoreOperationFailed = errors.New("store operation failed")
)
