package access

import (
	"errors"
	"fmt"

	"github.com/openpaas/groupd/api"
	"github.com/openpaas/groupd/internal"
	"github.com/openpaas/groupd/internal/server/data"
	"github.com/openpaas/groupd/internal/server/events"
	"github.com/openpaas/groupd/internal/server/members"
	"github.com/openpaas/groupd/internal/server/models"
	"github.com/openpaas/groupd/uid"
)

// Action is the membership mutation requested through
// POST /groups/:id/members?action=...
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// CreateGroup resolves the creation-time member emails, persists the group
// in the acting domain, and emits a created event. Any resolution failure
// rejects the whole request before the store is touched.
func CreateGroup(rCtx RequestContext, r *api.CreateGroupRequest) (*models.Group, error) {
	user := rCtx.Authenticated.User
	if user == nil {
		return nil, fmt.Errorf("%w: no authenticated user", internal.ErrUnauthorized)
	}

	domain, err := actingDomain(rCtx, r.DomainID)
	if err != nil {
		return nil, err
	}

	resolver := members.Resolver{Directory: newDirectory(rCtx.DBTxn)}
	tuples, err := resolver.ResolveEmails(rCtx.ctx(), r.Members)
	if err != nil {
		return nil, err
	}
	tuples = members.DiffAdd(nil, tuples) // drop duplicate inputs

	group := &models.Group{
		Name:      r.Name,
		Email:     models.NormalizeEmail(r.Email),
		CreatedBy: user.ID,
	}
	if err := data.CreateGroup(rCtx.DBTxn, group); err != nil {
		return nil, err
	}
	if err := data.BindGroupDomains(rCtx.DBTxn, group, *domain); err != nil {
		return nil, err
	}
	if err := data.ReplaceGroupMembers(rCtx.DBTxn, group, tuples); err != nil {
		return nil, err
	}

	group, err = data.GetGroup(rCtx.DBTxn, data.ByID(group.ID))
	if err != nil {
		return nil, err
	}

	rCtx.publish(events.Event{Type: events.TypeCreated, GroupID: group.ID, Name: group.Name, Email: group.Email})
	return group, nil
}

// actingDomain picks the domain a new group is created in: the one named in
// the request, or the creator's first domain membership.
func actingDomain(rCtx RequestContext, domainID uid.ID) (*models.Domain, error) {
	if domainID != 0 {
		domain, err := data.GetDomain(rCtx.DBTxn, data.ByID(domainID))
		if errors.Is(err, internal.ErrNotFound) {
			return nil, NotFoundError{Resource: "Domain"}
		}
		return domain, err
	}

	memberships, err := actorMemberships(rCtx)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, fmt.Errorf("%w: user does not belong to any domain", internal.ErrBadRequest)
	}
	return data.GetDomain(rCtx.DBTxn, data.ByID(memberships[0].DomainID))
}

// ListGroups returns a page of the global group catalog. Listing is not
// filtered by the caller's domains.
func ListGroups(rCtx RequestContext, p data.Pagination) ([]models.Group, error) {
	if rCtx.Authenticated.User == nil {
		return nil, fmt.Errorf("%w: no authenticated user", internal.ErrUnauthorized)
	}
	return data.ListGroups(rCtx.DBTxn, p)
}

// GetGroup loads a group for reading. Existence is checked before
// authorization.
func GetGroup(rCtx RequestContext, id uid.ID) (*models.Group, error) {
	group, err := loadGroup(rCtx, id)
	if err != nil {
		return nil, err
	}

	memberships, err := actorMemberships(rCtx)
	if err != nil {
		return nil, err
	}
	if err := canRead(memberships, group); err != nil {
		return nil, err
	}
	return group, nil
}

// UpdateGroup applies the provided fields only, persists, and emits an
// updated event.
func UpdateGroup(rCtx RequestContext, id uid.ID, r *api.UpdateGroupRequest) (*models.Group, error) {
	group, err := loadGroupForMutation(rCtx, id)
	if err != nil {
		return nil, err
	}

	if r.Name != "" {
		group.Name = r.Name
	}
	if r.Email != "" {
		group.Email = models.NormalizeEmail(r.Email)
	}

	if err := data.SaveGroup(rCtx.DBTxn, group); err != nil {
		return nil, err
	}

	group, err = data.GetGroup(rCtx.DBTxn, data.ByID(id))
	if err != nil {
		return nil, err
	}

	rCtx.publish(events.Event{Type: events.TypeUpdated, GroupID: group.ID, Name: group.Name, Email: group.Email})
	return group, nil
}

// DeleteGroup removes the group and its membership, and emits a deleted
// event.
func DeleteGroup(rCtx RequestContext, id uid.ID) error {
	group, err := loadGroupForMutation(rCtx, id)
	if err != nil {
		return err
	}

	if err := data.DeleteGroup(rCtx.DBTxn, group.ID); err != nil {
		return err
	}

	rCtx.publish(events.Event{Type: events.TypeDeleted, GroupID: group.ID, Name: group.Name, Email: group.Email})
	return nil
}

// ListGroupMembers returns a page of the group's membership sequence.
func ListGroupMembers(rCtx RequestContext, id uid.ID, p data.Pagination) ([]models.GroupMember, error) {
	group, err := loadGroup(rCtx, id)
	if err != nil {
		return nil, err
	}

	memberships, err := actorMemberships(rCtx)
	if err != nil {
		return nil, err
	}
	if err := canRead(memberships, group); err != nil {
		return nil, err
	}

	return data.ListGroupMembers(rCtx.DBTxn, group.ID, p)
}

// UpdateGroupMembers applies an idempotent add or remove of the submitted
// tuples. For add it returns the entries actually inserted, each carrying
// the requested tuple alongside the resolved member. The stored membership
// sequence is replaced atomically within the request transaction.
func UpdateGroupMembers(rCtx RequestContext, id uid.ID, action Action, tuples []models.Member) ([]api.ResolvedMember, error) {
	group, err := loadGroupForMutation(rCtx, id)
	if err != nil {
		return nil, err
	}

	current := group.MemberTuples()

	var next []models.Member
	var response []api.ResolvedMember

	switch action {
	case ActionAdd:
		resolver := members.Resolver{Directory: newDirectory(rCtx.DBTxn)}
		resolutions, err := resolver.ResolveAll(rCtx.ctx(), tuples)
		if err != nil {
			return nil, err
		}

		var resolved []models.Member
		for _, res := range resolutions {
			if res.Member != nil {
				resolved = append(resolved, *res.Member)
			}
		}

		delta := members.DiffAdd(current, resolved)
		next = append(current, delta...)

		inserted := make(map[string]bool, len(delta))
		for _, m := range delta {
			inserted[m.Key()] = true
		}
		for _, res := range resolutions {
			if res.Member == nil || !inserted[res.Member.Key()] {
				continue
			}
			delete(inserted, res.Member.Key())
			response = append(response, api.ResolvedMember{
				ID:         res.Requested.ID,
				ObjectType: res.Requested.ObjectType,
				Member:     res.Member.ToAPI(),
			})
		}

	case ActionRemove:
		if err := members.ValidateTuples(tuples); err != nil {
			return nil, err
		}
		requested := canonicalize(tuples)
		delta := members.DiffRemove(current, requested)
		next = members.Without(current, delta)

	default:
		return nil, fmt.Errorf("%w: %s is not a valid action on members (add, remove)", internal.ErrBadRequest, action)
	}

	if err := data.ReplaceGroupMembers(rCtx.DBTxn, group, next); err != nil {
		return nil, err
	}

	rCtx.publish(events.Event{Type: events.TypeUpdated, GroupID: group.ID, Name: group.Name, Email: group.Email})
	return response, nil
}

// canonicalize normalizes submitted tuples without consulting the
// directory. Remove must match stored tuples even when the referenced user
// no longer exists.
func canonicalize(tuples []models.Member) []models.Member {
	out := make([]models.Member, len(tuples))
	for i, t := range tuples {
		if t.ObjectType == models.ObjectTypeEmail {
			t.ID = models.NormalizeEmail(t.ID)
		}
		out[i] = t
	}
	return out
}

func loadGroup(rCtx RequestContext, id uid.ID) (*models.Group, error) {
	group, err := data.GetGroup(rCtx.DBTxn, data.ByID(id))
	if errors.Is(err, internal.ErrNotFound) {
		return nil, NotFoundError{Resource: "Group"}
	}
	return group, err
}

func loadGroupForMutation(rCtx RequestContext, id uid.ID) (*models.Group, error) {
	group, err := loadGroup(rCtx, id)
	if err != nil {
		return nil, err
	}

	memberships, err := actorMemberships(rCtx)
	if err != nil {
		return nil, err
	}
	if err := canMutate(memberships, group); err != nil {
		return nil, err
	}
	return group, nil
}
