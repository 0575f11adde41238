// Package model holds the shared data-model types passed between every
// CORE component: boards, entities, work items, tasks, reservations, and
// engine events.
package model

import (
	"time"

	"github.com/kadirpekel/hexboard/internal/hexcoord"
)

// BoardStatus is the board lifecycle status.
type BoardStatus string

const (
	BoardStopped  BoardStatus = "stopped"
	BoardStarting BoardStatus = "starting"
	BoardRunning  BoardStatus = "running"
	BoardStopping BoardStatus = "stopping"
	BoardError    BoardStatus = "error"
)

// Board is the top-level workspace: a hex grid, its placed entities, and
// its budget limits/totals.
type Board struct {
	ID     string
	Name   string
	Status BoardStatus

	MaxDollars float64
	MaxTokens  uint64

	TotalDollars float64
	TotalTokens  uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unlimited reports whether a limit value means "no limit" (0).
func Unlimited(limit float64) bool { return limit == 0 }

// EntityCategory distinguishes the two entity kinds placed on a board.
type EntityCategory string

const (
	CategoryAgent EntityCategory = "agent"
	CategoryTool  EntityCategory = "tool"
)

// EntityStatus is the UI/runtime status of a placed entity.
type EntityStatus string

const (
	EntityIdle     EntityStatus = "idle"
	EntityActive   EntityStatus = "active"
	EntityBusy     EntityStatus = "busy"
	EntityWarning  EntityStatus = "warning"
	EntityError    EntityStatus = "error"
	EntityDisabled EntityStatus = "disabled"
)

// EntityMetrics carries optional per-run counters surfaced to the UI.
type EntityMetrics struct {
	Calls       uint64
	TokensUsed  uint64
	CostDollars float64
	Throughput  float64
	LatencyMs   float64
	QueueDepth  int
}

// AgentTemplate tags the role an agent entity plays.
type AgentTemplate string

const (
	TemplatePlanner  AgentTemplate = "planner"
	TemplateCoder    AgentTemplate = "coder"
	TemplateReviewer AgentTemplate = "reviewer"
	TemplateOther    AgentTemplate = "other"
)

// AgentAttributes are the agent-specific fields of an Entity.
type AgentAttributes struct {
	Template          AgentTemplate
	Provider          string
	ModelID           string
	SystemPromptExtra string
	Temperature       float64
	RuleFiles         []string
}

// LinkingMode selects how a tool resolves which hexes it reaches.
type LinkingMode string

const (
	LinkByRange    LinkingMode = "range"
	LinkByExplicit LinkingMode = "explicit"
)

// ZoneConfig partitions the six neighbor directions into RBAC zones.
// ReadZone, WriteZone, and ReadWriteZone must be pairwise disjoint.
type ZoneConfig struct {
	ReadZone          map[hexcoord.Direction]bool
	WriteZone         map[hexcoord.Direction]bool
	ReadWriteZone     map[hexcoord.Direction]bool
	ExecuteInAllZones bool

	// RBACEnabled toggles zone evaluation; when false, DefaultPermissions
	// governs every access.
	RBACEnabled bool
	// DefaultPermissions is consulted only when RBACEnabled is false.
	DefaultPermissions map[Permission]bool

	// DenyEntityIDs always refuse access regardless of zone.
	DenyEntityIDs map[string]bool
	// AllowEntityIDs always grant access regardless of zone (but not
	// deny-list, which takes precedence).
	AllowEntityIDs map[string]bool
}

// Permission is one of the three RBAC actions.
type Permission string

const (
	PermRead    Permission = "read"
	PermWrite   Permission = "write"
	PermExecute Permission = "execute"
)

// Preset zone-pattern names recognized by the UI.
const (
	ZonePresetAllRW              = "all-rw"
	ZonePresetWriteLeftReadRight = "write-left-read-right"
)

// NewZoneConfigFromPreset builds a ZoneConfig for one of the recognized
// presets. The runtime accepts any configuration; this constructor exists
// only because the UI edits zones through presets.
func NewZoneConfigFromPreset(preset string) ZoneConfig {
	z := ZoneConfig{
		ReadZone:           map[hexcoord.Direction]bool{},
		WriteZone:          map[hexcoord.Direction]bool{},
		ReadWriteZone:      map[hexcoord.Direction]bool{},
		RBACEnabled:        true,
		DefaultPermissions: map[Permission]bool{},
		DenyEntityIDs:      map[string]bool{},
		AllowEntityIDs:     map[string]bool{},
	}
	switch preset {
	case ZonePresetAllRW:
		for _, d := range hexcoord.OrderedDirections {
			z.ReadWriteZone[d] = true
		}
		z.ExecuteInAllZones = true
	case ZonePresetWriteLeftReadRight:
		z.WriteZone[hexcoord.DirW] = true
		z.WriteZone[hexcoord.DirNW] = true
		z.WriteZone[hexcoord.DirSW] = true
		z.ReadZone[hexcoord.DirE] = true
		z.ReadZone[hexcoord.DirNE] = true
		z.ReadZone[hexcoord.DirSE] = true
	}
	return z
}

// ToolType enumerates the built-in plugin kinds.
type ToolType string

const (
	ToolFilesystem ToolType = "filesystem"
	ToolShell      ToolType = "shell"
	ToolTasklist   ToolType = "tasklist"
	ToolExtension  ToolType = "extension"
)

// ToolAttributes are the tool-specific fields of an Entity.
type ToolAttributes struct {
	ToolType    ToolType
	Config      map[string]any
	Range       int // 1..5
	LinkingMode LinkingMode
	LinkedHexes []string
	Zones       ZoneConfig
}

// Entity is the tagged union of Agent and Tool.
type Entity struct {
	ID          string
	DisplayName string
	Category    EntityCategory
	Status      EntityStatus
	Metrics     *EntityMetrics

	Agent *AgentAttributes
	Tool  *ToolAttributes
}

// HexCell carries at most one entity id.
type HexCell struct {
	Coord    hexcoord.Coord
	EntityID string // empty means an empty cell
}

// WorkItemStatus is the work item lifecycle status.
type WorkItemStatus string

const (
	WorkPending    WorkItemStatus = "pending"
	WorkProcessing WorkItemStatus = "processing"
	WorkCompleted  WorkItemStatus = "completed"
	WorkFailed     WorkItemStatus = "failed"
	WorkStuck      WorkItemStatus = "stuck"
)

// WorkItem is an in-memory unit of work flowing through the actor system.
type WorkItem struct {
	ID            string
	BoardID       string
	SourceHexID   string
	CurrentHexID  string
	Status        WorkItemStatus
	Payload       map[string]any
	Result        map[string]any
	Iteration     int
	Reasoning     *AgentState
	FailureError  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ToolCallRef references a single tool invocation requested by a thought.
type ToolCallRef struct {
	ToolCallID string
	ToolName   string
	Args       map[string]any
}

// Thought is one "think" step of the reasoning loop.
type Thought struct {
	Content   string
	ToolCalls []ToolCallRef
}

// Observation is the result of executing one tool call.
type Observation struct {
	ToolCallID string
	ToolName   string
	Success    bool
	Result     string
	Error      string
}

// UserInjection is a user-guidance message injected mid-run.
type UserInjection struct {
	Content          string
	AfterThoughtIndex int
}

// AgentState is the reasoning state carried by a work item. Invariant:
// every Observation with a ToolCallID must pair with a Thought that
// declared that id, and that thought must precede the observation in
// insertion order.
type AgentState struct {
	Thoughts     []Thought
	Observations []Observation
	Injections   []UserInjection
	Done         bool
	Stuck        bool
	FinalResult  string
}

// ValidateObservationPairing checks that every observation's tool-call id
// was declared by some thought; where that thought sits relative to the
// observation is not checked.
func (s *AgentState) ValidateObservationPairing() bool {
	declared := map[string]int{}
	for ti, t := range s.Thoughts {
		for _, tc := range t.ToolCalls {
			if _, exists := declared[tc.ToolCallID]; !exists {
				declared[tc.ToolCallID] = ti
			}
		}
	}
	seenThoughtCount := 0
	for _, o := range s.Observations {
		idx, ok := declared[o.ToolCallID]
		if !ok {
			return false
		}
		if idx >= len(s.Thoughts) {
			return false
		}
		_ = seenThoughtCount
	}
	return true
}

// TaskStatus is the lifecycle status of a tasklist task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
)

// Task is one entry in a tasklist tool's queue.
type Task struct {
	ID          string
	Title       string
	Description string
	Priority    string
	Status      TaskStatus

	ClaimHexKey    string
	ClaimEntityID  string
	ClaimName      string
	ClaimedAt      time.Time
}

// FileReservation is an exclusive claim on a normalized path.
type FileReservation struct {
	Path      string
	AgentID   string
	AgentName string
	Operation string
	ClaimedAt time.Time
}

// FileReadRecord tracks the modification time an agent observed when it
// last read a path, used for read-before-write and staleness checks.
type FileReadRecord struct {
	AgentID        string
	FilesystemID   string
	Path           string
	ModTimeAtRead  time.Time
	ReadAt         time.Time
	Hash           string
}

// LastModification records the most recent author/time of a mutation to a
// path within a filesystem scope.
type LastModification struct {
	FilesystemID string
	Path         string
	AgentID      string
	AgentName    string
	ModTime      time.Time
}

// ChangeEntry is one entry in the Change Tracker's rolling log.
type ChangeEntry struct {
	AgentID      string
	AgentName    string
	Template     AgentTemplate
	Operation    string
	Path         string
	FilesystemID string
	Timestamp    time.Time
}

// EngineEvent is the union type carried by the Event Bus.
type EngineEvent struct {
	Type      string
	HexID     string // empty string denotes a board-scope event
	BoardID   string
	Data      map[string]any
	Timestamp time.Time
}
