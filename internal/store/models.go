// Package store persists the mirrored Eagle library state in SQLite.
package store

import "time"

// PendingType classifies a detected filesystem change.
type PendingType string

const (
	// PendingCreate means a metadata file appeared.
	PendingCreate PendingType = "create"
	// PendingUpdate means a metadata file was modified.
	PendingUpdate PendingType = "update"
	// PendingDelete means a metadata file was removed.
	PendingDelete PendingType = "delete"
)

// LogType classifies a recorded sync failure.
type LogType string

const (
	// LogJSONError marks an item whose metadata could not be parsed.
	LogJSONError LogType = "json-error"
	// LogUnsupportedExt marks an item with an extension the mirror does not handle.
	LogUnsupportedExt LogType = "unsupported-ext"
	// LogUnknown marks any other failure.
	LogUnknown LogType = "unknown"
)

// Library is one watched/mirrored Eagle library directory.
type Library struct {
	Path         string    `json:"path"`
	Type         string    `json:"type"`
	IsActive     bool      `json:"is_active"`
	LastSyncTime time.Time `json:"last_sync_time,omitempty"`
	CreatedTime  time.Time `json:"created_time"`
}

// Pending is a detected but not-yet-applied filesystem change.
type Pending struct {
	Path      string      `json:"path"`
	Type      PendingType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}

// Folder mirrors one Eagle folder. The tree hangs together via PID.
type Folder struct {
	ID           string `json:"id"`
	PID          string `json:"pid,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Password     string `json:"password,omitempty"`
	PasswordTips string `json:"password_tips,omitempty"`
	Show         bool   `json:"show"`
	Count        int64  `json:"count"`
}

// Image mirrors one Eagle item. Path is the absolute path of the item's
// metadata.json and doubles as the library-scope key.
type Image struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	Ext       string `json:"ext"`
	Size      int64  `json:"size"`
	Width     int64  `json:"width"`
	Height    int64  `json:"height"`
	Mtime     int64  `json:"mtime"` // milliseconds, from Eagle metadata
	IsDeleted bool   `json:"is_deleted"`

	Tags    []string `json:"tags,omitempty"`
	Colors  []int64  `json:"colors,omitempty"`
	Folders []string `json:"folders,omitempty"`
}

// LogEntry is an append-only record of a per-item sync failure.
type LogEntry struct {
	Path      string    `json:"path"`
	Type      LogType   `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings is the process-wide singleton configuration row.
type Settings struct {
	IP                string `json:"ip"`
	ClientPort        int    `json:"client_port"`
	ServerPort        int    `json:"server_port"`
	Theme             string `json:"theme"`
	Color             string `json:"color"`
	AutoSync          bool   `json:"auto_sync"`
	StartDiffLibrary  bool   `json:"start_diff_library"`
	PwdFolder         bool   `json:"pwd_folder"`
	ActiveLibraryPath string `json:"active_library_path,omitempty"`
	Trash             bool   `json:"trash"`
}

// LibraryStatus is the active library plus its derived counters.
type LibraryStatus struct {
	Library
	PendingCount int64 `json:"pending_count"`
	SyncCount    int64 `json:"sync_count"`
	TrashCount   int64 `json:"trash_count"`
	UnSyncCount  int64 `json:"un_sync_count"`
}
