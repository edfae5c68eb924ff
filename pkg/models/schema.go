package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateMessage(msg *Message) error {
	if msg == nil {
		return &ValidationError{
			Field:   "message",
			Message: "message cannot be nil",
		}
	}

	if len(msg.Data) == 0 {
		return &ValidationError{
			Field:   "data",
			Message: "message data is required",
		}
	}

	return nil
}

// RequireAttributes reports the first missing attribute.
func RequireAttributes(msg *Message, keys ...string) error {
	for _, k := range keys {
		if msg.Attr(k) == "" {
			return &ValidationError{
				Field:   k,
				Message: "attribute is required",
			}
		}
	}
	return nil
}
