// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "anita.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(SlotHistory, []byte(`[{"id":"1"}]`)))

	data, err := s.Get(SlotHistory)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(data))
}

func TestStore_GetMissingSlot(t *testing.T) {
	s := openTestStore(t)

	data, err := s.Get("never-written")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStore_PutOverwritesWholesale(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(SlotTasks, []byte("first")))
	require.NoError(t, s.Put(SlotTasks, []byte("second")))

	data, err := s.Get(SlotTasks)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestStore_SlotsAreIndependent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(SlotHistory, []byte("history")))
	require.NoError(t, s.Put(SlotTasks, []byte("tasks")))
	require.NoError(t, s.Delete(SlotHistory))

	data, err := s.Get(SlotTasks)
	require.NoError(t, err)
	assert.Equal(t, "tasks", string(data))

	data, err = s.Get(SlotHistory)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anita.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(SlotHistory, []byte("survives")))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	data, err := s2.Get(SlotHistory)
	require.NoError(t, err)
	assert.Equal(t, "survives", string(data))
}

func TestStore_SchemaVersion(t *testing.T) {
	s := openTestStore(t)

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSlotView(t *testing.T) {
	s := openTestStore(t)
	v := s.Slot(SlotHistory)

	require.NoError(t, v.Save([]byte("via view")))

	data, err := v.Load()
	require.NoError(t, err)
	assert.Equal(t, "via view", string(data))
}
