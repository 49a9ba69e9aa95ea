// Package eagle talks to a local Eagle application: its read-mostly HTTP API
// and the metadata files it writes inside a .library directory.
package eagle

import "fmt"

// LibraryInfo is the payload of GET /library/info and, minus the library
// block, the shape of <library>/metadata.json on disk.
type LibraryInfo struct {
	Folders            []FolderNode `json:"folders"`
	ModificationTime   int64        `json:"modificationTime"`
	ApplicationVersion string       `json:"applicationVersion"`
	Library            struct {
		Path string `json:"path"`
		Name string `json:"name"`
	} `json:"library"`
}

// FolderNode is one node of the Eagle folder tree.
type FolderNode struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Description      string       `json:"description"`
	Children         []FolderNode `json:"children"`
	ModificationTime int64        `json:"modificationTime"`
	Tags             []string     `json:"tags"`
	Password         string       `json:"password"`
	PasswordTips     string       `json:"passwordTips"`
}

// Item is one Eagle item, as served by /item/info and stored in the item's
// metadata.json.
type Item struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Size             int64     `json:"size"`
	Btime            int64     `json:"btime"`
	Mtime            int64     `json:"mtime"`
	Ext              string    `json:"ext"`
	Tags             []string  `json:"tags"`
	Folders          []string  `json:"folders"`
	IsDeleted        bool      `json:"isDeleted"`
	URL              string    `json:"url"`
	Annotation       string    `json:"annotation"`
	ModificationTime int64     `json:"modificationTime"`
	Width            int64     `json:"width"`
	Height           int64     `json:"height"`
	LastModified     int64     `json:"lastModified"`
	Palettes         []Palette `json:"palettes"`
}

// Palette is one dominant color of an item.
type Palette struct {
	Color [3]int  `json:"color"`
	Ratio float64 `json:"ratio"`
}

// RGB packs the palette color into a single 0xRRGGBB value.
func (p Palette) RGB() int64 {
	return int64(p.Color[0])<<16 | int64(p.Color[1])<<8 | int64(p.Color[2])
}

// SearchParams are the query options of GET /item/list.
type SearchParams struct {
	Keyword string
	Limit   int
	Offset  int
	OrderBy string
	Ext     string
	Tags    []string
	Folders []string
}

// apiEnvelope is the wire envelope every Eagle API response uses.
type apiEnvelope struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	ErrorCode int    `json:"errorCode,omitempty"`
}

// APIError is a failed Eagle API call: a non-2xx status or an envelope with
// status "error".
type APIError struct {
	Endpoint   string
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("eagle api %s: %s", e.Endpoint, e.Message)
	}
	if e.Code != 0 {
		return fmt.Sprintf("eagle api %s: error code %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("eagle api %s: http status %d", e.Endpoint, e.StatusCode)
}
