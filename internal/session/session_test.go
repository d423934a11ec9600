package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/fluxcore/internal/env"
	"github.com/funvibe/fluxcore/internal/types"
)

func TestSyncAndLoadLedger(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	e := env.New()
	e.Nodes.AddInputNode("throttle", types.Int{})
	e.Data.Register(env.DataDef{Name: "x", Type: types.Int{}})
	e.Funcs.Register(env.FuncDef{Name: "add", Params: []env.Param{{Name: "a", Type: types.Int{}}}, Return: types.Int{}})

	ctx := context.Background()
	require.NoError(t, s.SyncSlots(ctx, e))

	entries, err := s.LoadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byName := make(map[string]LedgerEntry, len(entries))
	for _, le := range entries {
		byName[le.Name] = le
	}
	require.Equal(t, "node", byName["throttle"].Kind)
	require.Equal(t, "data", byName["x"].Kind)
	require.Equal(t, "func", byName["add"].Kind)
}

func TestRecordSubmission(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	id := uuid.New()
	require.NoError(t, s.RecordSubmission(context.Background(), id, true, 42))
}
