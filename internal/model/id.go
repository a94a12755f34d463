package model

import (
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator produces candidate component IDs.
// The builder rejects candidates already used in the model and asks again.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequentialGenerator generates "<prefix><n>" IDs starting at 1.
// Useful when stable IDs across runs matter more than opacity.
type SequentialGenerator struct {
	Prefix string
	next   int
}

// NewID implements IDGenerator.
func (g *SequentialGenerator) NewID() string {
	g.next++
	return g.Prefix + strconv.Itoa(g.next)
}
