package event

import (
	"testing"

	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversToTypeSubscribers(t *testing.T) {
	b := New()
	var got []model.EngineEvent
	b.SubscribeType(TypeTaskAdded, func(e model.EngineEvent) { got = append(got, e) })
	b.SubscribeType(TypeTaskClaimed, func(e model.EngineEvent) { t.Fatal("wrong type delivered") })

	b.Emit(model.EngineEvent{Type: TypeTaskAdded})

	assert.Len(t, got, 1)
}

func TestEmitFirehoseReceivesEverything(t *testing.T) {
	b := New()
	count := 0
	b.SubscribeAll(func(model.EngineEvent) { count++ })

	b.Emit(model.EngineEvent{Type: "some.unknown.type"})
	b.Emit(model.EngineEvent{Type: TypeTaskAdded})

	assert.Equal(t, 2, count)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub := b.SubscribeType(TypeTaskAdded, func(model.EngineEvent) { count++ })
	b.Emit(model.EngineEvent{Type: TypeTaskAdded})
	sub()
	b.Emit(model.EngineEvent{Type: TypeTaskAdded})

	assert.Equal(t, 1, count)
}

func TestUnsubscribeDuringEmitDoesNotSkipSiblings(t *testing.T) {
	b := New()
	var secondCalled bool
	var firstSub Subscription
	firstSub = b.SubscribeType(TypeTaskAdded, func(model.EngineEvent) { firstSub() })
	b.SubscribeType(TypeTaskAdded, func(model.EngineEvent) { secondCalled = true })

	b.Emit(model.EngineEvent{Type: TypeTaskAdded})

	assert.True(t, secondCalled, "sibling subscriber should still run after an in-flight unsubscribe")
}

func TestHandlerPanicDoesNotBlockOthers(t *testing.T) {
	b := New()
	var secondCalled bool
	b.SubscribeType(TypeTaskAdded, func(model.EngineEvent) { panic("boom") })
	b.SubscribeType(TypeTaskAdded, func(model.EngineEvent) { secondCalled = true })

	assert.NotPanics(t, func() {
		b.Emit(model.EngineEvent{Type: TypeTaskAdded})
	})
	assert.True(t, secondCalled)
}

func TestBoardAndHexScopedSubscriptions(t *testing.T) {
	b := New()
	var hexHits, boardHits int
	b.SubscribeHex("hex-1", func(model.EngineEvent) { hexHits++ })
	b.SubscribeBoard("board-1", func(model.EngineEvent) { boardHits++ })

	b.Emit(model.EngineEvent{Type: TypeHexStatus, HexID: "hex-1", BoardID: "board-1"})
	b.Emit(model.EngineEvent{Type: TypeHexStatus, HexID: "hex-2", BoardID: "board-1"})

	assert.Equal(t, 1, hexHits)
	assert.Equal(t, 2, boardHits)
}
