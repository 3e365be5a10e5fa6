// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewID_SortsByTime(t *testing.T) {
	earlier := NewID(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	later := NewID(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.Len(t, earlier, 26)
	assert.Less(t, earlier, later)
}

func TestHashContent_Deterministic(t *testing.T) {
	h1 := HashContent("connection refused on port 5432")
	h2 := HashContent("connection refused on port 5432")
	h3 := HashContent("different content")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 32)
}

func TestMemory_EntityRoundTrip(t *testing.T) {
	var mem Memory
	mem.SetEntities([]string{"postgres", "auth-service"})
	assert.Equal(t, []string{"postgres", "auth-service"}, mem.EntityList())

	mem.SetEntities(nil)
	assert.Equal(t, "[]", mem.Entities)
	assert.Empty(t, mem.EntityList())
}

func TestMemory_MalformedEntitiesReturnsNil(t *testing.T) {
	mem := Memory{Entities: "{not json"}
	assert.Nil(t, mem.EntityList())

	mem = Memory{Entities: ""}
	assert.Nil(t, mem.EntityList())
}

func TestMemory_TagRoundTrip(t *testing.T) {
	var mem Memory
	mem.SetTags([]string{"infra", "todo"})
	assert.Equal(t, []string{"infra", "todo"}, mem.TagList())
}

func TestIsValidMemoryType(t *testing.T) {
	for _, typ := range ValidMemoryTypes() {
		assert.True(t, IsValidMemoryType(typ), typ)
	}
	assert.False(t, IsValidMemoryType("thought"))
	assert.False(t, IsValidMemoryType(""))
}
