package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_FiltersByTableAndUser(t *testing.T) {
	hub := NewHub(4, zap.NewNop())

	all := hub.Subscribe([]string{"check_ins"}, "")
	defer all.Close()
	mine := hub.Subscribe([]string{"check_ins", "notifications"}, "staff-1")
	defer mine.Close()

	hub.Publish(Event{Table: "check_ins", Op: "INSERT", ID: "c1", UserID: "staff-2"})
	hub.Publish(Event{Table: "notifications", Op: "INSERT", ID: "n1", UserID: "staff-1"})
	hub.Publish(Event{Table: "patrol_rounds", Op: "UPDATE", ID: "r1", UserID: "staff-1"})

	require.Len(t, all.C, 1)
	assert.Equal(t, "c1", (<-all.C).ID)

	require.Len(t, mine.C, 1)
	assert.Equal(t, "n1", (<-mine.C).ID)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(2, zap.NewNop())
	slow := hub.Subscribe([]string{"points_history"}, "")
	defer slow.Close()

	for i := 0; i < 5; i++ {
		hub.Publish(Event{Table: "points_history", Op: "INSERT"})
	}

	assert.Len(t, slow.C, 2)
	assert.Equal(t, int64(3), hub.Dropped())
}

func TestHub_HandleNotification(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	sub := hub.Subscribe([]string{"departure_requests"}, "")
	defer sub.Close()

	hub.HandleNotification("table_changes", `{"table":"departure_requests","op":"UPDATE","id":"d1","user_id":"staff-1"}`)
	hub.HandleNotification("table_changes", `not json`)
	hub.HandleNotification("table_changes", `{"op":"UPDATE"}`)

	require.Len(t, sub.C, 1)
	ev := <-sub.C
	assert.Equal(t, Event{Table: "departure_requests", Op: "UPDATE", ID: "d1", UserID: "staff-1"}, ev)
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(1, zap.NewNop())
	sub := hub.Subscribe([]string{"check_ins"}, "")
	require.Equal(t, 1, hub.Subscribers())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Subscribers())

	_, ok := <-sub.C
	assert.False(t, ok, "取消订阅后通道应关闭")

	hub.Close()
	late := hub.Subscribe([]string{"check_ins"}, "")
	_, ok = <-late.C
	assert.False(t, ok, "Hub 关闭后的订阅应立即结束")
	late.Close()
	hub.Close()
}

func TestIsKnownTable(t *testing.T) {
	assert.True(t, IsKnownTable("patrol_scans"))
	assert.False(t, IsKnownTable("auth_identities"))
}
