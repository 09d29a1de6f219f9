package changefeed

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesListener(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	listener := make(chan *Change, 4)
	hub.AddListener(listener)
	defer hub.RemoveListener(listener)

	hub.Publish(Change{
		Op:     OpUpdate,
		Table:  TableComponents,
		Record: map[string]int{"availableQuantity": 3},
	})

	select {
	case change := <-listener:
		assert.Equal(t, OpUpdate, change.Op)
		assert.Equal(t, TableComponents, change.Table)
		assert.False(t, change.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("listener did not receive the published change")
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	// No Run goroutine, so the broadcast buffer fills up
	hub := NewHub(zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(Change{Op: OpInsert, Table: TableRequests})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full broadcast buffer")
	}
}

func TestRemoveListener(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	listener := make(chan *Change, 1)
	hub.AddListener(listener)
	hub.RemoveListener(listener)

	hub.Publish(Change{Op: OpDelete, Table: TableComponents})

	select {
	case <-listener:
		t.Fatal("removed listener still received a change")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientCountEmpty(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	require.Equal(t, 0, hub.ClientCount(TableComponents))
	require.Equal(t, 0, hub.ClientCount(TableRequests))
}
