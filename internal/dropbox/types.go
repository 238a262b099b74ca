// Dropbox API wire types, based on https://www.dropbox.com/developers/documentation/http/documentation
package dropbox

import (
	"time"

	"github.com/tapedeck/tapedeck/internal/models"
)

// entry is a raw metadata object from the files API.
type entry struct {
	Tag            string    `json:".tag"`
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PathDisplay    string    `json:"path_display"`
	PathLower      string    `json:"path_lower"`
	Size           uint64    `json:"size,omitempty"`
	ClientModified time.Time `json:"client_modified,omitempty"`
	ServerModified time.Time `json:"server_modified,omitempty"`
	Rev            string    `json:"rev,omitempty"`
}

// toModel converts a wire entry into the immutable [models.Entry] snapshot.
func (e entry) toModel() models.Entry {
	return models.Entry{
		ID:             e.ID,
		Name:           e.Name,
		PathDisplay:    e.PathDisplay,
		IsFolder:       e.Tag == "folder",
		Size:           e.Size,
		ClientModified: e.ClientModified,
		ServerModified: e.ServerModified,
		Rev:            e.Rev,
	}
}

type listFolderRequest struct {
	Path             string `json:"path"`
	Recursive        bool   `json:"recursive"`
	IncludeMediaInfo bool   `json:"include_media_info"`
}

type listFolderContinueRequest struct {
	Cursor string `json:"cursor"`
}

type listFolderResponse struct {
	Entries []entry `json:"entries"`
	Cursor  string  `json:"cursor"`
	HasMore bool    `json:"has_more"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type temporaryLinkResponse struct {
	Metadata entry  `json:"metadata"`
	Link     string `json:"link"`
}

type createFolderResponse struct {
	Metadata entry `json:"metadata"`
}

type deleteResponse struct {
	Metadata entry `json:"metadata"`
}

// uploadArg is serialized into the Dropbox-API-Arg header on content uploads.
type uploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	AutoRename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

type accountResponse struct {
	AccountID string `json:"account_id"`
	Name      struct {
		DisplayName string `json:"display_name"`
	} `json:"name"`
	Email string `json:"email"`
}

// apiError is the error envelope returned on non-2xx responses.
type apiError struct {
	ErrorSummary string `json:"error_summary"`
}
