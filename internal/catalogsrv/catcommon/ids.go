package catcommon

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	apiKeyPrefix   = "dck_"
	apiKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	apiKeyLength   = 40
)

// NewID returns a time-ordered (version 7) identifier for datasets, files,
// users and activities.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// IDTime returns the creation time encoded in a version 7 identifier.
func IDTime(id uuid.UUID) time.Time {
	ms := binary.BigEndian.Uint64(id[0:8]) >> 16
	return time.UnixMilli(int64(ms))
}

// NewAPIKey returns a random API key. Uniqueness is checked by the store.
func NewAPIKey() (string, error) {
	k, err := gonanoid.Generate(apiKeyAlphabet, apiKeyLength)
	if err != nil {
		return "", err
	}
	return apiKeyPrefix + k, nil
}
