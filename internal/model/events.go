package model

// ResultCode is handed back by the add/edit flow to the task list.
type ResultCode int

const (
	AddOK ResultCode = iota + 1
	EditOK
)

// Event is a one-shot instruction for a presentation surface.
type Event interface {
	Kind() string
}

type NavigateToAddScreen struct{}

type NavigateToEditScreen struct {
	Task Task `json:"task"`
}

type NavigateToDeleteCompletedScreen struct{}

type ShowUndoMessage struct {
	Task Task `json:"task"`
}

type ShowConfirmation struct {
	Message string `json:"message"`
}

type ShowInvalidInputMessage struct {
	Message string `json:"message"`
}

type NavigateBack struct {
	Result ResultCode `json:"result"`
}

func (NavigateToAddScreen) Kind() string             { return "navigate_to_add" }
func (NavigateToEditScreen) Kind() string            { return "navigate_to_edit" }
func (NavigateToDeleteCompletedScreen) Kind() string { return "navigate_to_delete_completed" }
func (ShowUndoMessage) Kind() string                 { return "show_undo" }
func (ShowConfirmation) Kind() string                { return "show_confirmation" }
func (ShowInvalidInputMessage) Kind() string         { return "show_invalid_input" }
func (NavigateBack) Kind() string                    { return "navigate_back" }
