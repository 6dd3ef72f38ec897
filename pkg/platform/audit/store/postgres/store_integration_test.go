//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	audit "verity/pkg/platform/audit"
	"verity/pkg/testutil/containers"
)

func TestOutboxStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()
	store := New(pc.DB)

	entry := func(ref string, op audit.Operation, ts time.Time) audit.Entry {
		return audit.Entry{
			ID:            uuid.New(),
			ReferenceID:   ref,
			Operation:     op,
			Outcome:       audit.OutcomeSuccess,
			MaskedPayload: "document=XXXX-XXXX-0124",
			Channel:       "web",
			Timestamp:     ts,
		}
	}

	t.Run("append and list by reference, oldest first", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

		require.NoError(t, store.Append(ctx, entry("ref-1", audit.OpOtpVerified, base.Add(time.Minute))))
		require.NoError(t, store.Append(ctx, entry("ref-1", audit.OpEkycInitiated, base)))
		require.NoError(t, store.Append(ctx, entry("ref-2", audit.OpEkycInitiated, base)))

		got, err := store.ListByReference(ctx, "ref-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, audit.OpEkycInitiated, got[0].Operation)
		require.Equal(t, audit.OpOtpVerified, got[1].Operation)
		require.Equal(t, "document=XXXX-XXXX-0124", got[0].MaskedPayload)
	})

	t.Run("pending batch drains through mark published", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

		first := entry("ref-1", audit.OpEkycInitiated, base)
		second := entry("ref-1", audit.OpOtpDispatched, base.Add(time.Second))
		require.NoError(t, store.Append(ctx, first))
		require.NoError(t, store.Append(ctx, second))

		pending, err := store.PendingBatch(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		require.Equal(t, first.ID, pending[0].ID)

		require.NoError(t, store.MarkPublished(ctx, first.ID))
		pending, err = store.PendingBatch(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, second.ID, pending[0].ID)
	})
}
