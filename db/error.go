package db

import (
	"errors"
	"fmt"
)

type ErrInvalidMCI struct {
	put    uint64
	expect uint64
}

func (i ErrInvalidMCI) Error() string {
	return fmt.Sprintf("an invalid mci detected while putting stable joints to db %d, expect %d",
		i.put, i.expect)
}

var ErrInternal = errors.New("internal error")

var ErrNotFound = errors.New("not found")
