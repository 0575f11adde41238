package event

// Event type constants recognized by the core. Unknown
// event types are still accepted by Bus.Emit and simply pass through to
// whatever subscribers registered for them.
const (
	TypeHexStatus   = "hex.status"
	TypeHexProgress = "hex.progress"

	TypeWorkReceived  = "work.received"
	TypeWorkCompleted = "work.completed"
	TypeWorkFlowing   = "work.flowing"

	TypeLLMRequest  = "llm.request"
	TypeLLMResponse = "llm.response"

	TypeEntityUpdated = "entity.updated"
	TypeError         = "error"

	TypeBoardStarting = "board.starting"
	TypeBoardStarted  = "board.started"
	TypeBoardStopping = "board.stopping"
	TypeBoardStopped  = "board.stopped"
	TypeBoardError    = "board.error"
	TypeBoardLoaded   = "board.loaded"

	TypeBudgetExceeded      = "budget.exceeded"
	TypeBudgetUpdated       = "budget.updated"
	TypeBudgetLimitsUpdated = "budget.limits.updated"

	TypeTaskAdded          = "task.added"
	TypeTaskClaimed        = "task.claimed"
	TypeTaskCompleted      = "task.completed"
	TypeTaskReleased       = "task.released"
	TypeTasksAvailable     = "tasks.available"

	TypeShellCommandStart  = "shell.command.start"
	TypeShellCommandOutput = "shell.command.output"
	TypeShellCommandExit   = "shell.command.exit"

	TypeFilesystemChanged = "filesystem.changed"

	TypeUserMessage = "user.message"
)
