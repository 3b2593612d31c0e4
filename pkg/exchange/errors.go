package exchange

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVariant is returned when no gateway is registered for a variant.
var ErrUnsupportedVariant = errors.New("exchange: unsupported variant")

// ConfigError reports missing or incompatible gateway credentials. It is
// raised at construction, before any network I/O.
type ConfigError struct {
	Variant Variant
	Field   string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("exchange config: %s %s", e.Variant, e.Reason)
	}
	return fmt.Sprintf("exchange config: %s requires %s", e.Variant, e.Field)
}

// VenueError wraps an adapter-level transport, parse or rejection failure
// with the venue's own message.
type VenueError struct {
	Venue string
	Op    string
	Err   error
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Venue, e.Op, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// WrapVenue returns err wrapped as a VenueError, or nil.
func WrapVenue(venue, op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *VenueError
	if errors.As(err, &ve) && ve.Venue == venue {
		return err
	}
	return &VenueError{Venue: venue, Op: op, Err: err}
}
