package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(HistoryEntryEvent(HistoryEntry(`{"wpm":1}`)))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, EventHistoryEntry, got.Type)
	assert.Equal(t, `{"wpm":1}`, string(got.Payload))
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	q.Enqueue(HistoryEntryEvent(HistoryEntry(`"A"`)))
	q.Enqueue(ConfigChangedEvent(ConfigState(`"B"`)))
	q.Enqueue(HistoryEntryEvent(HistoryEntry(`"C"`)))

	for _, want := range []string{`"A"`, `"B"`, `"C"`} {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, string(e.Payload))
	}
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_Enqueue_AfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()

	ok := q.Enqueue(HistoryEntryEvent(HistoryEntry(`{}`)))
	assert.False(t, ok, "enqueue after close should return false")
}

func TestEventQueue_Close_Idempotent(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close()

	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Wait channel should be closed")
	}
}

func TestEventQueue_Drained(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(HistoryEntryEvent(HistoryEntry(`{}`)))

	assert.False(t, q.Drained(), "open queue is never drained")

	q.Close()
	assert.False(t, q.Drained(), "closed queue with events is not drained")

	q.TryDequeue()
	assert.True(t, q.Drained())
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(HistoryEntryEvent(HistoryEntry(`1`)))
	assert.Equal(t, 1, q.Len())

	q.Enqueue(HistoryEntryEvent(HistoryEntry(`2`)))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_SignalCoalesces(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(HistoryEntryEvent(HistoryEntry(`1`)))
	q.Enqueue(HistoryEntryEvent(HistoryEntry(`2`)))

	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce into one")
	default:
	}
	assert.Equal(t, 2, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(HistoryEntryEvent(HistoryEntry(`{}`)))
			}
		}()
	}
	wg.Wait()

	received := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		received++
	}
	assert.Equal(t, producers*eventsPerProducer, received)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "appendHistory", EventHistoryEntry.String())
	assert.Equal(t, "saveConfig", EventConfigChanged.String())
	assert.Equal(t, "EventType(7)", EventType(7).String())
}
