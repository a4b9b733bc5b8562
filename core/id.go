package core

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier used for plans and memory records.
func NewID() string { return uuid.NewString() }

// NewCompactID returns NewID without dashes so it can be embedded in a
// function name.
func NewCompactID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
