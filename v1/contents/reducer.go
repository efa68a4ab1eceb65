package contents

// TruncationReducer keeps the newest TargetCount messages once the history
// grows beyond TargetCount+ThresholdCount.
//
// The first system or developer message always survives, and a tool
// message is never kept without the assistant message that requested it:
// the cut point moves backwards until it no longer lands on a tool message.
type TruncationReducer struct {
	TargetCount    int
	ThresholdCount int
}

// Reduce shortens history in place and reports whether it changed.
func (r TruncationReducer) Reduce(history *ChatHistory) (bool, error) {
	if r.TargetCount <= 0 {
		return false, ErrInvalidReducer
	}

	messages := history.Messages()
	if len(messages) <= r.TargetCount+r.ThresholdCount {
		return false, nil
	}

	systemIndex := -1
	for i, m := range messages {
		if m.Role == RoleSystem || m.Role == RoleDeveloper {
			systemIndex = i
			break
		}
	}

	keep := r.TargetCount
	if systemIndex >= 0 {
		keep--
	}
	start := len(messages) - keep
	if start < 0 {
		start = 0
	}
	for start > 0 && start < len(messages) && isToolMessage(messages[start]) {
		start--
	}

	reduced := make([]*ChatMessageContent, 0, len(messages)-start+1)
	if systemIndex >= 0 && systemIndex < start {
		reduced = append(reduced, messages[systemIndex])
	}
	reduced = append(reduced, messages[start:]...)

	if len(reduced) == len(messages) {
		return false, nil
	}
	history.Replace(reduced)
	return true, nil
}

func isToolMessage(m *ChatMessageContent) bool {
	if m.Role == RoleTool {
		return true
	}
	return len(m.FunctionResults()) > 0
}
