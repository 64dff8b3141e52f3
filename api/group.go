package api

import (
	"time"

	"github.com/openpaas/groupd/uid"
)

// Group is the denormalized representation of a group returned by every
// group endpoint.
type Group struct {
	ID        uid.ID            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Creator   uid.ID            `json:"creator,omitempty"`
	DomainIDs []uid.ID          `json:"domainIds,omitempty"`
	Members   []MembershipEntry `json:"members"`
	Created   time.Time         `json:"created"`
	Updated   time.Time         `json:"updated"`
}

type ListGroupsRequest struct {
	PaginationRequest
}

type CreateGroupRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	// DomainID is the domain the group is created in. When empty the
	// creator's first domain membership is used.
	DomainID uid.ID `json:"domainId"`
	// Members are bare email addresses. Each is resolved against the
	// directory: a known address becomes a user member, an unknown one an
	// email member.
	Members []string `json:"members"`
}

type UpdateGroupRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

type ListGroupMembersRequest struct {
	PaginationRequest
}
