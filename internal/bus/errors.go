package bus

import "errors"

var (
	ErrConfigRequired      = errors.New("gradeflow: configuration is required")
	ErrTransportRequired   = errors.New("gradeflow: transport is required")
	ErrReplierRequired     = errors.New("gradeflow: replier is required")
	ErrHandlerRequired     = errors.New("gradeflow: handler function is required")
	ErrHandlerNameRequired = errors.New("gradeflow: handler name is required")
	ErrRoutingKeyRequired  = errors.New("gradeflow: routing key is required")
)
