package api

// PaginationRequest is embedded in list requests. Limit and Offset map
// directly onto the query parameters of the same names.
type PaginationRequest struct {
	Limit  int `form:"limit" validate:"min=0,max=1000"`
	Offset int `form:"offset" validate:"min=0"`
}

// HeaderItemsCount reports the number of items in a list response.
const HeaderItemsCount = "X-Items-Count"
