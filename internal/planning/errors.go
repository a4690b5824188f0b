package planning

import (
	"fmt"

	"github.com/letteros/letteros/internal/domain"
)

// ErrUnparsable is returned when the model's reply does not contain the
// expected JSON. It maps to a generation failure.
var ErrUnparsable = fmt.Errorf("%w: model reply could not be parsed", domain.ErrUpstream)
