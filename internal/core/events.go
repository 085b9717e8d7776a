package core

import "encoding/json"

// Event names carried over the duplex channel. The worker fixes these
// names; both directions use a JSON {event, data} envelope.
const (
	// client -> worker
	EventStartOperation   = "start_operation"
	EventResolveConflicts = "resolve_conflicts"
	EventCancelOperation  = "cancel_operation"

	// worker -> client
	EventProgressUpdate     = "progress_update"
	EventLogMessage         = "log_message"
	EventOperationComplete  = "operation_complete"
	EventOperationCancelled = "operation_cancelled"
	EventScanComplete       = "scan_complete"
	EventAskForOverwrite    = "ask_for_overwrite"
)

// OperationKind identifies a bulk operation. Values are wire names.
type OperationKind string

const (
	OpCopy           OperationKind = "copy"
	OpMove           OperationKind = "move"
	OpFindDuplicates OperationKind = "find_duplicates"
	OpCloudBackup    OperationKind = "cloud_backup"
	OpCloudRestore   OperationKind = "cloud_restore"
)

// IsCloud reports whether the operation requires an authenticated user.
func (k OperationKind) IsCloud() bool {
	return k == OpCloudBackup || k == OpCloudRestore
}

// startOperationPayload is the outbound start_operation body.
type startOperationPayload struct {
	Operation  string   `json:"operation"`
	Paths      []string `json:"paths"`
	DestFolder string   `json:"dest_folder"`
	UserID     string   `json:"user_id,omitempty"`
}

// resolveConflictsPayload is the outbound resolve_conflicts body.
type resolveConflictsPayload struct {
	ToOverwrite    []string `json:"to_overwrite"`
	ToProcessFirst []string `json:"to_process_first"`
	IsMoveOp       bool     `json:"is_move_op"`
	DestFolder     string   `json:"dest_folder"`
}

// progressPayload is the inbound progress_update body.
type progressPayload struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// logPayload is the inbound log_message body. Type defaults to "info".
type logPayload struct {
	Data string `json:"data"`
	Type string `json:"type"`
}

// completePayload is the inbound operation_complete body.
type completePayload struct {
	Operation string `json:"operation"`
	Success   int    `json:"success"`
	Failed    int    `json:"failed"`
}

// overwritePayload is the inbound ask_for_overwrite body.
type overwritePayload struct {
	Conflicts    []string `json:"conflicts"`
	NonConflicts []string `json:"non_conflicts"`
	IsMoveOp     bool     `json:"is_move_op"`
}

// scanGroupPayload is one duplicate group inside scan_complete.
type scanGroupPayload struct {
	Hash  string   `json:"hash"`
	Files []string `json:"files"`
}

// scanPayload is the inbound scan_complete body.
type scanPayload struct {
	AllFiles   []string           `json:"all_files"`
	Uniques    []string           `json:"uniques"`
	Duplicates []scanGroupPayload `json:"duplicates"`
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
