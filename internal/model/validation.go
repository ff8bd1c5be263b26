package model

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ozzo's Required treats fixed-size arrays as never empty, so uuid.Nil
// needs its own rule.
func requiredUUID(value interface{}) error {
	id, ok := value.(uuid.UUID)
	if !ok {
		return errors.New("must be a UUID")
	}
	if id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
}

func validTimezone(value interface{}) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return errors.New("unknown timezone")
	}
	return nil
}
