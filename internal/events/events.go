package events

// Constructors for the event kinds the engine and coordinator publish.
// Keeping payload keys here in one place makes subscribers stable against
// call-site drift.

func RoundStarted(source string, round, maxRounds int) Event {
	return New(TypeRoundStarted, source, map[string]any{
		"round": round,
		"max":   maxRounds,
	})
}

func ToolCall(source, tool, arguments string) Event {
	return New(TypeToolCall, source, map[string]any{
		"tool":      tool,
		"arguments": arguments,
	})
}

func ToolResult(source, tool string, isError bool) Event {
	return New(TypeToolResult, source, map[string]any{
		"tool":  tool,
		"error": isError,
	})
}

func AssistantReply(source string, chars int) Event {
	return New(TypeAssistantReply, source, map[string]any{
		"chars": chars,
	})
}

func Compaction(source string, replacedTurns int, manual bool) Event {
	return New(TypeCompaction, source, map[string]any{
		"replaced_turns": replacedTurns,
		"manual":         manual,
	})
}

func JobFinished(jobID, command string, exitCode int) Event {
	return New(TypeJobFinished, "background", map[string]any{
		"job_id":    jobID,
		"command":   command,
		"exit_code": exitCode,
	})
}

func TeammateSpawned(spawner, name, agentType string) Event {
	return New(TypeTeammateSpawned, spawner, map[string]any{
		"name": name,
		"type": agentType,
	})
}

func TeammateDone(name string, failed bool) Event {
	return New(TypeTeammateDone, name, map[string]any{
		"failed": failed,
	})
}
