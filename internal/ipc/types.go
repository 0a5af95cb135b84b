package ipc

import "time"

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// SessionInfo mirrors the capture session snapshot.
type SessionInfo struct {
	Active              bool   `json:"active"`
	CollectionKey       string `json:"collection_key"`
	RequireConfirmation bool   `json:"require_confirmation"`
}

// ExportInfo mirrors the latest export batch snapshot.
type ExportInfo struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Running      bool         `json:"running"`
	Current      int          `json:"current"`
	Total        int          `json:"total"`
	CurrentLabel string       `json:"current_label,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at,omitempty"`
	Results      []ExportItem `json:"results,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// ExportItem is one per-collection export outcome.
type ExportItem struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	FileCount    int    `json:"file_count"`
	Success      bool   `json:"success"`
	ArchivePath  string `json:"archive_path,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// StatusResponse represents combined daemon status information.
type StatusResponse struct {
	Running           bool        `json:"running"`
	PID               int         `json:"pid"`
	Session           SessionInfo `json:"session"`
	HasPending        bool        `json:"has_pending"`
	PendingCollection string      `json:"pending_collection,omitempty"`
	PendingStagedAt   time.Time   `json:"pending_staged_at,omitempty"`
	PreferenceDBPath  string      `json:"preference_db_path"`
	LockPath          string      `json:"lock_path"`
	CaptureDir        string      `json:"capture_dir"`
	ExportDir         string      `json:"export_dir"`
	Export            *ExportInfo `json:"export,omitempty"`
}

// SessionStartRequest starts the capture session.
type SessionStartRequest struct{}

// SessionStartResponse reports the resulting session state.
type SessionStartResponse struct {
	Session SessionInfo `json:"session"`
}

// SessionStopRequest stops the capture session.
type SessionStopRequest struct{}

// SessionStopResponse reports the resulting session state.
type SessionStopResponse struct {
	Session SessionInfo `json:"session"`
}

// CaptureRequest grabs one frame. Collection optionally overrides the
// session's current target.
type CaptureRequest struct {
	Collection string `json:"collection,omitempty"`
}

// ItemInfo describes one stored capture.
type ItemInfo struct {
	Collection string `json:"collection"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Size       int64  `json:"size"`
}

// CaptureResponse reports where the capture went.
type CaptureResponse struct {
	Staged bool     `json:"staged"`
	Item   ItemInfo `json:"item,omitempty"`
}

// ConfirmPendingRequest persists the staged capture.
type ConfirmPendingRequest struct{}

// ConfirmPendingResponse carries the persisted item.
type ConfirmPendingResponse struct {
	Item ItemInfo `json:"item"`
}

// RejectPendingRequest drops the staged capture.
type RejectPendingRequest struct{}

// RejectPendingResponse acknowledges the discard.
type RejectPendingResponse struct {
	Rejected bool `json:"rejected"`
}

// SelectCollectionRequest changes the current capture target.
type SelectCollectionRequest struct {
	Key string `json:"key"`
}

// SelectCollectionResponse returns the sanitized key now in effect.
type SelectCollectionResponse struct {
	Key string `json:"key"`
}

// SetConfirmationRequest toggles the require-confirmation preference.
type SetConfirmationRequest struct {
	Enabled bool `json:"enabled"`
}

// SetConfirmationResponse reports the resulting session state.
type SetConfirmationResponse struct {
	Session SessionInfo `json:"session"`
}

// CollectionInfo is one collection with its stored item count.
type CollectionInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CollectionListRequest lists built-in and custom collections.
type CollectionListRequest struct{}

// CollectionListResponse contains the merged collection list.
type CollectionListResponse struct {
	Collections []CollectionInfo `json:"collections"`
}

// CollectionAddRequest registers a custom collection.
type CollectionAddRequest struct {
	Label string `json:"label"`
}

// CollectionAddResponse returns the updated custom list.
type CollectionAddResponse struct {
	Collections []CollectionInfo `json:"collections"`
}

// ExportStartRequest launches an export batch.
type ExportStartRequest struct {
	Username string `json:"username"`
}

// ExportStartResponse carries the batch job id.
type ExportStartResponse struct {
	JobID string `json:"job_id"`
}

// ExportStatusRequest fetches the latest batch snapshot.
type ExportStatusRequest struct{}

// ExportStatusResponse contains the snapshot when one exists.
type ExportStatusResponse struct {
	Found  bool       `json:"found"`
	Export ExportInfo `json:"export"`
}

// LastExportNameRequest fetches the remembered export username.
type LastExportNameRequest struct{}

// LastExportNameResponse carries the remembered username, empty when unset.
type LastExportNameResponse struct {
	Username string `json:"username"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
