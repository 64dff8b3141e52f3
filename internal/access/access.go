// Package access enforces domain-scoped authorization and orchestrates
// group mutations around the store.
package access

import (
	"fmt"

	"github.com/openpaas/groupd/internal"
	"github.com/openpaas/groupd/internal/server/data"
	"github.com/openpaas/groupd/internal/server/models"
	"github.com/openpaas/groupd/uid"
)

// ForbiddenError indicates the acting identity may not perform the
// operation on the group. Reason is user visible.
type ForbiddenError struct {
	GroupID uid.ID
	Reason  string
}

func (e ForbiddenError) Error() string {
	return e.Reason
}

func (e ForbiddenError) Is(other error) bool {
	// nolint:errorlint // comparing with == is correct here, the caller uses Unwrap.
	return other == internal.ErrForbidden
}

// NotFoundError indicates the named resource does not exist. Existence is
// always checked before authorization, so an unauthorized actor probing a
// missing group still sees not-found.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e NotFoundError) Is(other error) bool {
	// nolint:errorlint
	return other == internal.ErrNotFound
}

func noPermission(groupID uid.ID) ForbiddenError {
	return ForbiddenError{
		GroupID: groupID,
		Reason:  fmt.Sprintf("You do not have permission to perform action on this group: %s", groupID),
	}
}

func notDomainManager(groupID uid.ID) ForbiddenError {
	return ForbiddenError{GroupID: groupID, Reason: "User is not the domain manager"}
}

// canRead reports whether an actor with the given domain memberships may
// view the group: any shared domain suffices.
func canRead(memberships []models.DomainMember, group *models.Group) error {
	if sharesDomain(memberships, group, false) {
		return nil
	}
	return noPermission(group.ID)
}

// canMutate reports whether the actor may update, delete, or change the
// membership of the group: only domain administrators of one of the group's
// domains qualify. Being the creator grants nothing by itself.
func canMutate(memberships []models.DomainMember, group *models.Group) error {
	if sharesDomain(memberships, group, true) {
		return nil
	}
	if sharesDomain(memberships, group, false) {
		return notDomainManager(group.ID)
	}
	return noPermission(group.ID)
}

func sharesDomain(memberships []models.DomainMember, group *models.Group, adminOnly bool) bool {
	groupDomains := make(map[uid.ID]bool, len(group.Domains))
	for _, d := range group.Domains {
		groupDomains[d.ID] = true
	}

	for _, m := range memberships {
		if adminOnly && !m.Admin {
			continue
		}
		if groupDomains[m.DomainID] {
			return true
		}
	}
	return false
}

func actorMemberships(rCtx RequestContext) ([]models.DomainMember, error) {
	user := rCtx.Authenticated.User
	if user == nil {
		return nil, fmt.Errorf("%w: no authenticated user", internal.ErrUnauthorized)
	}
	return data.ListDomainMemberships(rCtx.DBTxn, user.ID)
}
