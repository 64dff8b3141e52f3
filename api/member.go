package api

// Member is the canonical member tuple. ObjectType is "user" or "email";
// ID is a directory user id (base58) or a bare email address.
type Member struct {
	ObjectType string `json:"objectType"`
	ID         string `json:"id"`
}

// MembershipEntry wraps a Member inside a group document, mirroring the
// stored membership shape.
type MembershipEntry struct {
	Member Member `json:"member"`
}

// ResolvedMember is one entry of the add-members response. ID and ObjectType
// echo the requested tuple so callers can reconcile inputs to outcomes;
// Member is the canonical tuple that was actually inserted.
type ResolvedMember struct {
	ID         string `json:"id"`
	ObjectType string `json:"objectType"`
	Member     Member `json:"member"`
}
