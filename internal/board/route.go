package board

import (
	"context"

	"github.com/kadirpekel/hexboard/internal/config"
	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/hexcoord"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/obslog"
)

// routeWorkToAdjacent delivers a completed work item to every neighboring
// tool hex, never to a neighboring agent: completed work flows back into
// the board's tools (the tasklist it was claimed from, a filesystem or
// shell it should now act through), not sideways into another agent's
// inbox.
func (br *boardRun) routeWorkToAdjacent(ev model.EngineEvent) {
	source, err := hexcoord.ParseKey(ev.HexID)
	if err != nil {
		return
	}

	workID, _ := ev.Data["work_item_id"].(string)
	if workID == "" {
		return
	}

	item, ok := br.queue.Get(workID)
	if !ok || item == nil {
		return
	}

	log := obslog.ForHex(br.boardID, ev.HexID)
	routed := false
	for _, n := range hexcoord.Neighbors(source) {
		key := n.Key()
		br.mu.Lock()
		entityID, ok := br.hexKeyToEntity[key]
		if !ok {
			br.mu.Unlock()
			continue
		}
		category := br.categoryByEntity[entityID]
		receiver := br.receivers[entityID]
		br.mu.Unlock()

		if category != model.CategoryTool || receiver == nil {
			continue
		}
		if receiver.ReceiveWork(item) {
			routed = true
			log.Debug("routed completed work to adjacent tool", "work_id", workID, "to_entity_id", entityID)
		}
	}

	if routed {
		br.runner.Bus.Emit(model.EngineEvent{
			Type:    event.TypeWorkFlowing,
			HexID:   ev.HexID,
			BoardID: br.boardID,
			Data:    map[string]any{"work_id": workID},
		})
	}
}

// handleConfigDrift reacts to a store-level change notification for one
// hex's persisted config: if the newly computed fingerprint differs from
// the one captured at board start, the running actor is stale and
// entity.updated is emitted so observers (and, for agents, the tool-cache
// invalidation handler) can react. The Board Runner itself does not
// hot-swap the actor; a full board restart picks up the new config.
func (br *boardRun) handleConfigDrift(ctx context.Context, hexID string) {
	h, err := br.runner.Adapter.GetHex(ctx, hexID)
	if err != nil {
		return
	}
	category := model.EntityCategory(h.Category)
	entity, err := config.DecodeEntity(h.ID, h.Name, category, h.EntityType, h.Config)
	if err != nil {
		obslog.ForHex(br.boardID, hexID).Warn("board: drift check found undecodable config", "error", err)
		return
	}
	newFingerprint := config.Fingerprint(entity, h.Config)

	br.mu.Lock()
	old, tracked := br.fingerprints[hexID]
	if tracked {
		br.fingerprints[hexID] = newFingerprint
	}
	br.mu.Unlock()

	if !tracked || old == newFingerprint {
		return
	}

	br.runner.Bus.Emit(model.EngineEvent{
		Type:    event.TypeEntityUpdated,
		HexID:   hexID,
		BoardID: br.boardID,
		Data:    map[string]any{"entity_id": hexID},
	})
}
