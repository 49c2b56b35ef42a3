package employee

import "errors"

var (
	ErrInvalidID             = errors.New("employee: invalid id")
	ErrInvalidName           = errors.New("employee: invalid name")
	ErrInvalidEmail          = errors.New("employee: invalid email")
	ErrInvalidType           = errors.New("employee: invalid employee type")
	ErrInvalidDepartment     = errors.New("employee: invalid department")
	ErrInvalidLocation       = errors.New("employee: invalid working location")
	ErrInvalidStatus         = errors.New("employee: invalid status")
	ErrInvalidBaseCost       = errors.New("employee: base cost must not be negative")
	ErrInvalidJoiningDate    = errors.New("employee: invalid joining date")
	ErrInvalidPageSize       = errors.New("employee: invalid page size")
	ErrInvalidPageToken      = errors.New("employee: invalid page token")
	ErrInvalidDateRange      = errors.New("employee: invalid employment period")
	ErrEmployeeNotFound      = errors.New("employee: not found")
	ErrEmployeeAlreadyExists = errors.New("employee: id already exists")
)
