// Package api provides the HTTP client for the worker's
// request/response endpoints: connection status, directory listing,
// file preview materialization and account management. These sit
// outside the event channel; the coordinator depends on their
// contracts but does not own them.
package api

// StatusReport is the worker's connectivity probe result. Status is one
// of "success", "warning" or "error"; anything but success blocks file
// listing but does not change coordinator state.
type StatusReport struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Connected reports whether the device is fully accessible.
func (r StatusReport) Connected() bool {
	return r.Status == "success"
}

// DirEntry is one row of a remote directory listing. Directory names
// carry a trailing slash; Size is pre-formatted by the worker.
type DirEntry struct {
	Name  string `json:"name"`
	Size  string `json:"size"`
	IsDir bool   `json:"is_dir"`
}

// PreviewResult is the outcome of materializing a remote file locally.
type PreviewResult struct {
	Success   bool   `json:"success"`
	LocalPath string `json:"local_path"`
	Error     string `json:"error,omitempty"`
}

// AccountInfo is the worker-held account record. Limits and expiry are
// enforced worker-side; the client only displays them.
type AccountInfo struct {
	Container string  `json:"container"`
	Plan      string  `json:"plan"`
	LimitGB   float64 `json:"limit_gb"`
	Created   string  `json:"created"`
	Expiry    string  `json:"expiry"`
}

// LoginResult carries the authenticated user and their account record.
type LoginResult struct {
	Success bool        `json:"success"`
	User    string      `json:"user"`
	Info    AccountInfo `json:"info"`
	Message string      `json:"message,omitempty"`
}

// AdminUser is one row of the admin user listing, including measured
// storage usage.
type AdminUser struct {
	UserID    string  `json:"user_id"`
	Container string  `json:"container"`
	Plan      string  `json:"plan"`
	LimitGB   float64 `json:"limit_gb"`
	UsageGB   float64 `json:"usage_gb"`
	Created   string  `json:"created"`
	Expiry    string  `json:"expiry"`
}

// ackResult is the generic {success, message} body several endpoints
// return.
type ackResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
