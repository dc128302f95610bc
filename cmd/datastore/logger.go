package main

import (
	"github.com/google/uuid"
)

func newSnapshotID() uuid.UUID {
	return uuid.New()
}
