package manager

import "errors"

// Sentinel errors for the tree registry.
var (
	ErrNotFound         = errors.New("manager: no root registered for process type")
	ErrEmptyProcessType = errors.New("manager: process type is empty")
	ErrNilRoot          = errors.New("manager: root node is nil")
)
