package relay

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	apperr "office-relay/errors"
)

var validate = validator.New()

// Envelope is the relay request the backend posts on the HTTP bridge.
// Event selects the dispatch row; Data stays opaque at this boundary and
// each row decodes its own shape.
type Envelope struct {
	Event string          `json:"event" validate:"required"`
	Data  json.RawMessage `json:"data"`
}

func (e Envelope) Validate() error {
	if err := validate.Struct(e); err != nil {
		return apperr.ErrEventRequired
	}
	return nil
}
