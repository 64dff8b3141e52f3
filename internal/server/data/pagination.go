package data

// Pagination bounds a list query. A zero value returns everything.
type Pagination struct {
	Limit  int
	Offset int
}
