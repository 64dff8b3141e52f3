package api

type Version struct {
	Version string `json:"version"`
}

type EmptyRequest struct{}

type EmptyResponse struct{}
