package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var ErrInvalidItem = errors.New("invalid item")

// ValidateItem checks a new item before it is handed to an item store.
func ValidateItem(it Item) error {
	if err := validate.Struct(it); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", e.Field(), e.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidItem, strings.Join(msgs, "; "))
	}
	if it.Kind == KindStory && it.TaskSubtype != "" {
		return fmt.Errorf("%w: taskSubtype is only allowed on tasks", ErrInvalidItem)
	}
	return nil
}
