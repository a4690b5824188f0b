package subscriber

import "github.com/letteros/letteros/internal/domain"

func errDuplicateEmail() error {
	return domain.NewValidationError("email", "already exists in this list")
}
