// Package idgen provides short, URL-safe identifiers for ingest runs and
// daemon requests, backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes distinguish the kinds of identifier in logs and events.
const (
	RunPrefix     = "run-"
	RequestPrefix = "req-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// NewRunID returns an identifier for one ingest run.
func NewRunID() (string, error) {
	return GenerateWithPrefix(RunPrefix)
}

// NewRequestID returns an identifier for a daemon ingest request that
// arrived without one.
func NewRequestID() (string, error) {
	return GenerateWithPrefix(RequestPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
