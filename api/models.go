package api

import (
	"github.com/lumenjournal/lumen/docstore"
	"github.com/lumenjournal/lumen/upload"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Token is present only when the session transport mirrors the
	// raw token to the client.
	Token string `json:"token,omitempty"`
}

type logoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type statusResponse struct {
	Success            bool   `json:"success"`
	Authenticated      bool   `json:"authenticated"`
	AuthEnabled        bool   `json:"authEnabled"`
	PasswordConfigured bool   `json:"passwordConfigured"`
	Message            string `json:"message,omitempty"`
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type verifyTokenResponse struct {
	Success bool `json:"success"`
	Valid   bool `json:"valid"`
}

type momentRequest struct {
	Content   string          `json:"content"`
	Tags      []string        `json:"tags"`
	Status    docstore.Status `json:"status"`
	Images    []string        `json:"images"`
	Videos    []string        `json:"videos"`
	Favorited bool            `json:"favorited"`
}

type momentPatch struct {
	Content   *string          `json:"content"`
	Tags      *[]string        `json:"tags"`
	Status    *docstore.Status `json:"status"`
	Images    *[]string        `json:"images"`
	Videos    *[]string        `json:"videos"`
	Favorited *bool            `json:"favorited"`
}

type momentResponse struct {
	Success bool             `json:"success"`
	Moment  *docstore.Moment `json:"moment"`
}

type momentListResponse struct {
	Success bool `json:"success"`
	*docstore.Page
}

type tagsResponse struct {
	Success bool                `json:"success"`
	Tags    []docstore.TagCount `json:"tags"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type uploadResponse struct {
	Success bool           `json:"success"`
	File    *upload.Result `json:"file"`
}

type uploadBatchResponse struct {
	Success bool             `json:"success"`
	Files   []*upload.Result `json:"files"`
}

type uploadInfoResponse struct {
	Success         bool     `json:"success"`
	MaxFileSize     int64    `json:"max_file_size"`
	ImageExtensions []string `json:"image_extensions"`
	VideoExtensions []string `json:"video_extensions"`
	Destination     string   `json:"destination"`
}

type healthResponse struct {
	Status         string `json:"status"`
	StoreConnected bool   `json:"store_connected"`
	Error          string `json:"error,omitempty"`
}
