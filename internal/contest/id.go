package contest

import "github.com/google/uuid"

// KeyProvider issues unique suffixes for test-mode submission keys.
type KeyProvider interface {
	NewKey() (string, error)
}

type uuidKeyProvider struct{}

// NewUUIDKeyProvider constructs a KeyProvider that issues UUIDv7 identifiers.
func NewUUIDKeyProvider() KeyProvider {
	return &uuidKeyProvider{}
}

func (p *uuidKeyProvider) NewKey() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
