package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openpaas/groupd/api"
	"github.com/openpaas/groupd/internal"
	"github.com/openpaas/groupd/internal/access"
	"github.com/openpaas/groupd/internal/server/data"
	"github.com/openpaas/groupd/internal/server/models"
	"github.com/openpaas/groupd/uid"
)

func (a *API) ListGroups(c *gin.Context, r *api.ListGroupsRequest) ([]api.Group, error) {
	groups, err := access.ListGroups(getRequestContext(c), paginationFromRequest(r.PaginationRequest))
	if err != nil {
		return nil, err
	}

	results := make([]api.Group, 0, len(groups))
	for i := range groups {
		results = append(results, *groups[i].ToAPI())
	}

	setItemsCount(c, len(results))
	return results, nil
}

func (a *API) CreateGroup(c *gin.Context, r *api.CreateGroupRequest) (*api.Group, error) {
	group, err := access.CreateGroup(getRequestContext(c), r)
	if err != nil {
		return nil, err
	}

	return group.ToAPI(), nil
}

func (a *API) GetGroup(c *gin.Context, r *api.EmptyRequest) (*api.Group, error) {
	id, err := groupIDFromRoute(c)
	if err != nil {
		return nil, err
	}

	group, err := access.GetGroup(getRequestContext(c), id)
	if err != nil {
		return nil, err
	}

	return group.ToAPI(), nil
}

func (a *API) UpdateGroup(c *gin.Context, r *api.UpdateGroupRequest) (*api.Group, error) {
	id, err := groupIDFromRoute(c)
	if err != nil {
		return nil, err
	}

	group, err := access.UpdateGroup(getRequestContext(c), id, r)
	if err != nil {
		return nil, err
	}

	return group.ToAPI(), nil
}

func (a *API) DeleteGroup(c *gin.Context, r *api.EmptyRequest) error {
	id, err := groupIDFromRoute(c)
	if err != nil {
		return err
	}

	return access.DeleteGroup(getRequestContext(c), id)
}

func (a *API) ListGroupMembers(c *gin.Context, r *api.ListGroupMembersRequest) ([]api.MembershipEntry, error) {
	id, err := groupIDFromRoute(c)
	if err != nil {
		return nil, err
	}

	rows, err := access.ListGroupMembers(getRequestContext(c), id, paginationFromRequest(r.PaginationRequest))
	if err != nil {
		return nil, err
	}

	results := make([]api.MembershipEntry, 0, len(rows))
	for i := range rows {
		results = append(results, rows[i].ToAPI())
	}

	setItemsCount(c, len(results))
	return results, nil
}

// updateGroupMembersHandler bypasses the generic bind helpers: the request
// body is a bare JSON array, not an object, and the two actions respond with
// different status codes.
func (a *API) updateGroupMembersHandler(c *gin.Context) {
	id, err := groupIDFromRoute(c)
	if err != nil {
		sendAPIError(c, err)
		return
	}

	action := access.Action(c.Query("action"))

	var body []api.Member
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		sendAPIError(c, fmt.Errorf("%w: body should be an array", internal.ErrBadRequest))
		return
	}

	tuples := make([]models.Member, 0, len(body))
	for _, m := range body {
		tuples = append(tuples, models.Member{ObjectType: m.ObjectType, ID: m.ID})
	}

	resolved, err := access.UpdateGroupMembers(getRequestContext(c), id, action, tuples)
	if err != nil {
		sendAPIError(c, err)
		return
	}

	if action == access.ActionRemove {
		c.Status(http.StatusNoContent)
		c.Writer.WriteHeaderNow()
		return
	}

	if resolved == nil {
		resolved = []api.ResolvedMember{}
	}
	c.JSON(http.StatusOK, resolved)
}

func (a *API) Version(c *gin.Context, r *api.EmptyRequest) (*api.Version, error) {
	return &api.Version{Version: internal.FullVersion()}, nil
}

func groupIDFromRoute(c *gin.Context) (uid.ID, error) {
	id, err := uid.Parse([]byte(c.Param("id")))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid group id", internal.ErrBadRequest)
	}
	return id, nil
}

func paginationFromRequest(r api.PaginationRequest) data.Pagination {
	return data.Pagination{Limit: r.Limit, Offset: r.Offset}
}

func setItemsCount(c *gin.Context, count int) {
	c.Header(api.HeaderItemsCount, strconv.Itoa(count))
}
