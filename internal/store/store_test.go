package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer s.Close()

	snapshot := json.RawMessage(`{"pos":"5"}`)
	require.NoError(t, s.Save("conn1", snapshot))

	got, err := s.Load("conn1")
	require.NoError(t, err)
	assert.JSONEq(t, string(snapshot), string(got))
}

func TestStoreLoadMissingConnReturnsNil(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load("unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreDeleteRemovesSnapshot(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save("conn1", json.RawMessage(`{}`)))
	require.NoError(t, s.Delete("conn1"))

	got, err := s.Load("conn1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
