// Package storagetest checks that a storage.Journal behaves.
package storagetest

import (
	"context"
	"testing"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/sio"
	"github.com/Comcast/fernspiel/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalContract exercises an open, empty Journal.
func RunJournalContract(t *testing.T, j storage.Journal) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		es, err := j.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, es)
	})

	t.Run("Record and Recent", func(t *testing.T) {
		var seqs []uint64
		for _, to := range []string{"ring", "introduce", "talk", "quiet"} {
			e := &storage.Entry{
				Transition: &sio.Transition{
					To:     to,
					Origin: core.FromState,
					Event:  "1",
				},
			}
			require.NoError(t, j.Record(ctx, e))
			seqs = append(seqs, e.Seq)
		}
		for i := 1; i < len(seqs); i++ {
			assert.Greater(t, seqs[i], seqs[i-1])
		}

		es, err := j.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, es, 2)
		assert.Equal(t, "talk", es[0].Transition.To)
		assert.Equal(t, "quiet", es[1].Transition.To)
		assert.Equal(t, seqs[3], es[1].Seq)
		assert.Equal(t, core.FromState, es[1].Transition.Origin)

		es, err = j.Recent(ctx, 100)
		require.NoError(t, err)
		assert.Len(t, es, 4)
		assert.Equal(t, "ring", es[0].Transition.To)
	})

	t.Run("Recent None", func(t *testing.T) {
		es, err := j.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, es)
	})
}
