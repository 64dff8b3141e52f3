package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"gotest.tools/v3/assert"

	"github.com/openpaas/groupd/api"
	"github.com/openpaas/groupd/internal/server/data"
	"github.com/openpaas/groupd/internal/server/events"
	"github.com/openpaas/groupd/internal/server/models"
	"github.com/openpaas/groupd/internal/server/search"
	"github.com/openpaas/groupd/uid"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

var cmpAPIGroup = gocmp.Options{
	cmpopts.IgnoreFields(api.Group{}, "Created", "Updated"),
	cmpopts.EquateEmpty(),
}

func setupServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	driver, err := data.NewSQLiteDriver("file::memory:")
	assert.NilError(t, err)

	db, err := data.NewDB(driver)
	assert.NilError(t, err)

	srv := &Server{
		db:     db,
		events: events.NewDispatcher(),
		index:  search.NewMemoryIndex(),
	}
	t.Cleanup(srv.events.Close)

	return srv, srv.GenerateRoutes(prometheus.NewRegistry())
}

// fixture holds two domains: open-paas.org with an admin and a plain
// member, and other.org with a single member who shares nothing with the
// first domain.
type fixture struct {
	domain      *models.Domain
	otherDomain *models.Domain

	admin    *models.User
	member   *models.User
	outsider *models.User

	adminKey    string
	memberKey   string
	outsiderKey string
}

func seedFixture(t *testing.T, srv *Server) fixture {
	t.Helper()
	db := srv.db

	f := fixture{
		domain:      &models.Domain{Name: "open-paas.org"},
		otherDomain: &models.Domain{Name: "other.org"},
		admin:       &models.User{Name: "Admin", Email: "admin@open-paas.org"},
		member:      &models.User{Name: "Member", Email: "member@open-paas.org"},
		outsider:    &models.User{Name: "Outsider", Email: "outsider@other.org"},
	}

	assert.NilError(t, data.CreateDomain(db, f.domain))
	assert.NilError(t, data.CreateDomain(db, f.otherDomain))

	assert.NilError(t, data.CreateUser(db, f.admin))
	assert.NilError(t, data.CreateUser(db, f.member))
	assert.NilError(t, data.CreateUser(db, f.outsider))

	assert.NilError(t, data.AddDomainMember(db, &models.DomainMember{
		DomainID: f.domain.ID, UserID: f.admin.ID, Admin: true,
	}))
	assert.NilError(t, data.AddDomainMember(db, &models.DomainMember{
		DomainID: f.domain.ID, UserID: f.member.ID,
	}))
	assert.NilError(t, data.AddDomainMember(db, &models.DomainMember{
		DomainID: f.otherDomain.ID, UserID: f.outsider.ID,
	}))

	var err error
	f.adminKey, err = data.CreateAccessKey(db, &models.AccessKey{Name: "admin", IssuedFor: f.admin.ID})
	assert.NilError(t, err)
	f.memberKey, err = data.CreateAccessKey(db, &models.AccessKey{Name: "member", IssuedFor: f.member.ID})
	assert.NilError(t, err)
	f.outsiderKey, err = data.CreateAccessKey(db, &models.AccessKey{Name: "outsider", IssuedFor: f.outsider.ID})
	assert.NilError(t, err)

	return f
}

func doRequest(t *testing.T, handler http.Handler, method, path, accessKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NilError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if accessKey != "" {
		req.Header.Set("Authorization", "Bearer "+accessKey)
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func decodeJSON(t *testing.T, resp *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	assert.NilError(t, json.Unmarshal(resp.Body.Bytes(), into))
}

func createTestGroup(t *testing.T, handler http.Handler, accessKey string, req api.CreateGroupRequest) api.Group {
	t.Helper()

	resp := doRequest(t, handler, http.MethodPost, "/api/groups", accessKey, req)
	assert.Equal(t, resp.Code, http.StatusCreated, resp.Body.String())

	var group api.Group
	decodeJSON(t, resp, &group)
	return group
}

func TestAPI_CreateGroup(t *testing.T) {
	srv, handler := setupServer(t)
	f := seedFixture(t, srv)

	t.Run("members resolve against the directory", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name:    "platform",
			Email:   "platform@open-paas.org",
			Members: []string{"member@open-paas.org", "user@external.com"},
		})

		assert.Equal(t, group.Name, "platform")
		assert.Equal(t, group.Creator, f.admin.ID)
		assert.DeepEqual(t, group.DomainIDs, []uid.ID{f.domain.ID})

		assert.Equal(t, len(group.Members), 2)
		assert.DeepEqual(t, group.Members[0].Member, api.Member{
			ObjectType: "user", ID: f.member.ID.String(),
		})
		assert.DeepEqual(t, group.Members[1].Member, api.Member{
			ObjectType: "email", ID: "user@external.com",
		})
	})

	t.Run("duplicate member emails collapse", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name:    "dupes",
			Email:   "dupes@open-paas.org",
			Members: []string{"a@external.com", "A@External.COM"},
		})
		assert.Equal(t, len(group.Members), 1)
	})

	t.Run("invalid group email", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodPost, "/api/groups", f.adminKey, api.CreateGroupRequest{
			Name:  "bad",
			Email: "not-an-email",
		})
		assert.Equal(t, resp.Code, http.StatusBadRequest)
	})

	t.Run("malformed member email fails the request", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodPost, "/api/groups", f.adminKey, api.CreateGroupRequest{
			Name:    "bad-members",
			Email:   "bad-members@open-paas.org",
			Members: []string{"fine@external.com", "not an email"},
		})
		assert.Equal(t, resp.Code, http.StatusBadRequest)
	})

	t.Run("duplicate group email conflicts", func(t *testing.T) {
		createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name:  "taken",
			Email: "taken@open-paas.org",
		})
		resp := doRequest(t, handler, http.MethodPost, "/api/groups", f.adminKey, api.CreateGroupRequest{
			Name:  "taken again",
			Email: "taken@open-paas.org",
		})
		assert.Equal(t, resp.Code, http.StatusConflict)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodPost, "/api/groups", "", api.CreateGroupRequest{
			Name:  "anon",
			Email: "anon@open-paas.org",
		})
		assert.Equal(t, resp.Code, http.StatusUnauthorized)
	})
}

func TestAPI_ListGroups(t *testing.T) {
	srv, handler := setupServer(t)
	f := seedFixture(t, srv)

	createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{Name: "first", Email: "first@open-paas.org"})
	createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{Name: "second", Email: "second@open-paas.org"})

	resp := doRequest(t, handler, http.MethodGet, "/api/groups", f.memberKey, nil)
	assert.Equal(t, resp.Code, http.StatusOK)
	assert.Equal(t, resp.Header().Get(api.HeaderItemsCount), "2")

	var groups []api.Group
	decodeJSON(t, resp, &groups)
	assert.Equal(t, len(groups), 2)
	assert.Equal(t, groups[0].Name, "first")
	assert.Equal(t, groups[1].Name, "second")

	t.Run("pagination", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodGet, "/api/groups?limit=1&offset=1", f.memberKey, nil)
		assert.Equal(t, resp.Code, http.StatusOK)
		assert.Equal(t, resp.Header().Get(api.HeaderItemsCount), "1")

		var page []api.Group
		decodeJSON(t, resp, &page)
		assert.Equal(t, len(page), 1)
		assert.Equal(t, page[0].Name, "second")
	})
}

func TestAPI_GetGroup(t *testing.T) {
	srv, handler := setupServer(t)
	f := seedFixture(t, srv)

	group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
		Name: "readable", Email: "readable@open-paas.org",
	})

	t.Run("member of a shared domain can read", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodGet, "/api/groups/"+group.ID.String(), f.memberKey, nil)
		assert.Equal(t, resp.Code, http.StatusOK)

		var got api.Group
		decodeJSON(t, resp, &got)
		expected := api.Group{
			ID:        group.ID,
			Name:      "readable",
			Email:     "readable@open-paas.org",
			Creator:   f.admin.ID,
			DomainIDs: []uid.ID{f.domain.ID},
		}
		assert.DeepEqual(t, got, expected, cmpAPIGroup)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodGet, "/api/groups/"+group.ID.String(), f.outsiderKey, nil)
		assert.Equal(t, resp.Code, http.StatusForbidden)

		var apiError api.Error
		decodeJSON(t, resp, &apiError)
		assert.Equal(t, apiError.Details,
			fmt.Sprintf("You do not have permission to perform action on this group: %s", group.ID))
	})

	t.Run("unknown group is not found", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodGet, "/api/groups/"+uid.New().String(), f.memberKey, nil)
		assert.Equal(t, resp.Code, http.StatusNotFound)

		var apiError api.Error
		decodeJSON(t, resp, &apiError)
		assert.Equal(t, apiError.Details, "Group not found")
	})

	t.Run("existence is checked before authorization", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodGet, "/api/groups/"+uid.New().String(), f.outsiderKey, nil)
		assert.Equal(t, resp.Code, http.StatusNotFound)
	})
}

func TestAPI_UpdateGroup(t *testing.T) {
	srv, handler := setupServer(t)
	f := seedFixture(t, srv)

	group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
		Name: "before", Email: "before@open-paas.org",
	})

	t.Run("plain member is not the domain manager", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodPut, "/api/groups/"+group.ID.String(), f.memberKey,
			api.UpdateGroupRequest{Name: "nope"})
		assert.Equal(t, resp.Code, http.StatusForbidden)

		var apiError api.Error
		decodeJSON(t, resp, &apiError)
		assert.Equal(t, apiError.Details, "User is not the domain manager")
	})

	t.Run("domain admin updates name only", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodPut, "/api/groups/"+group.ID.String(), f.adminKey,
			api.UpdateGroupRequest{Name: "after"})
		assert.Equal(t, resp.Code, http.StatusOK)

		var got api.Group
		decodeJSON(t, resp, &got)
		assert.Equal(t, got.Name, "after")
		assert.Equal(t, got.Email, "before@open-paas.org")
	})
}

func TestAPI_DeleteGroup(t *testing.T) {
	srv, handler := setupServer(t)
	f := seedFixture(t, srv)

	group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
		Name: "doomed", Email: "doomed@open-paas.org",
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodDelete, "/api/groups/"+group.ID.String(), f.outsiderKey, nil)
		assert.Equal(t, resp.Code, http.StatusForbidden)
	})

	t.Run("domain admin deletes", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodDelete, "/api/groups/"+group.ID.String(), f.adminKey, nil)
		assert.Equal(t, resp.Code, http.StatusNoContent)

		resp = doRequest(t, handler, http.MethodGet, "/api/groups/"+group.ID.String(), f.adminKey, nil)
		assert.Equal(t, resp.Code, http.StatusNotFound)
	})
}

func TestAPI_UpdateGroupMembers(t *testing.T) {
	srv, handler := setupServer(t)
	f := seedFixture(t, srv)

	membersPath := func(group api.Group, action string) string {
		return fmt.Sprintf("/api/groups/%s/members?action=%s", group.ID, action)
	}

	t.Run("add known user and new email", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name: "add", Email: "add@open-paas.org",
		})

		resp := doRequest(t, handler, http.MethodPost, membersPath(group, "add"), f.adminKey, []api.Member{
			{ObjectType: "user", ID: f.member.ID.String()},
			{ObjectType: "email", ID: "guest@external.com"},
		})
		assert.Equal(t, resp.Code, http.StatusOK, resp.Body.String())

		var resolved []api.ResolvedMember
		decodeJSON(t, resp, &resolved)
		assert.Equal(t, len(resolved), 2)
		assert.DeepEqual(t, resolved[0].Member, api.Member{ObjectType: "user", ID: f.member.ID.String()})
		assert.DeepEqual(t, resolved[1].Member, api.Member{ObjectType: "email", ID: "guest@external.com"})
	})

	t.Run("add is idempotent and reports only inserted entries", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name:    "idem",
			Email:   "idem@open-paas.org",
			Members: []string{"member@open-paas.org"},
		})

		resp := doRequest(t, handler, http.MethodPost, membersPath(group, "add"), f.adminKey, []api.Member{
			{ObjectType: "user", ID: f.member.ID.String()},
			{ObjectType: "email", ID: "new@external.com"},
		})
		assert.Equal(t, resp.Code, http.StatusOK)

		var resolved []api.ResolvedMember
		decodeJSON(t, resp, &resolved)
		assert.Equal(t, len(resolved), 1)
		assert.DeepEqual(t, resolved[0].Member, api.Member{ObjectType: "email", ID: "new@external.com"})
	})

	t.Run("unknown user id is skipped", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name: "skip", Email: "skip@open-paas.org",
		})

		resp := doRequest(t, handler, http.MethodPost, membersPath(group, "add"), f.adminKey, []api.Member{
			{ObjectType: "user", ID: uid.New().String()},
			{ObjectType: "user", ID: f.member.ID.String()},
		})
		assert.Equal(t, resp.Code, http.StatusOK)

		var resolved []api.ResolvedMember
		decodeJSON(t, resp, &resolved)
		assert.Equal(t, len(resolved), 1)
		assert.DeepEqual(t, resolved[0].Member, api.Member{ObjectType: "user", ID: f.member.ID.String()})
	})

	t.Run("remove preserves the order of the remaining members", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name:    "remove",
			Email:   "remove@open-paas.org",
			Members: []string{"a@external.com", "member@open-paas.org", "c@external.com"},
		})

		resp := doRequest(t, handler, http.MethodPost, membersPath(group, "remove"), f.adminKey, []api.Member{
			{ObjectType: "email", ID: "a@external.com"},
			{ObjectType: "email", ID: "absent@external.com"}, // silently ignored
		})
		assert.Equal(t, resp.Code, http.StatusNoContent, resp.Body.String())

		resp = doRequest(t, handler, http.MethodGet, "/api/groups/"+group.ID.String(), f.adminKey, nil)
		assert.Equal(t, resp.Code, http.StatusOK)

		var got api.Group
		decodeJSON(t, resp, &got)
		assert.Equal(t, len(got.Members), 2)
		assert.DeepEqual(t, got.Members[0].Member, api.Member{ObjectType: "user", ID: f.member.ID.String()})
		assert.DeepEqual(t, got.Members[1].Member, api.Member{ObjectType: "email", ID: "c@external.com"})
	})

	t.Run("plain member may not mutate membership", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name: "guarded", Email: "guarded@open-paas.org",
		})

		resp := doRequest(t, handler, http.MethodPost, membersPath(group, "add"), f.memberKey, []api.Member{
			{ObjectType: "email", ID: "x@external.com"},
		})
		assert.Equal(t, resp.Code, http.StatusForbidden)

		var apiError api.Error
		decodeJSON(t, resp, &apiError)
		assert.Equal(t, apiError.Details, "User is not the domain manager")
	})

	t.Run("invalid action", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name: "invalid-action", Email: "invalid-action@open-paas.org",
		})

		resp := doRequest(t, handler, http.MethodPost, membersPath(group, "invite"), f.adminKey, []api.Member{
			{ObjectType: "email", ID: "x@external.com"},
		})
		assert.Equal(t, resp.Code, http.StatusBadRequest)

		var apiError api.Error
		decodeJSON(t, resp, &apiError)
		assert.Equal(t, apiError.Details, "invite is not a valid action on members (add, remove)")
	})

	t.Run("body must be an array", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name: "not-array", Email: "not-array@open-paas.org",
		})

		resp := doRequest(t, handler, http.MethodPost, membersPath(group, "add"), f.adminKey,
			json.RawMessage(`{"objectType":"user","id":"1"}`))
		assert.Equal(t, resp.Code, http.StatusBadRequest)

		var apiError api.Error
		decodeJSON(t, resp, &apiError)
		assert.Equal(t, apiError.Details, "body should be an array")
	})

	t.Run("one bad tuple fails the batch", func(t *testing.T) {
		group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
			Name: "bad-tuple", Email: "bad-tuple@open-paas.org",
		})

		resp := doRequest(t, handler, http.MethodPost, membersPath(group, "add"), f.adminKey, []api.Member{
			{ObjectType: "email", ID: "fine@external.com"},
			{ObjectType: "wat", ID: "???"},
		})
		assert.Equal(t, resp.Code, http.StatusBadRequest)

		var apiError api.Error
		decodeJSON(t, resp, &apiError)
		assert.Equal(t, apiError.Details, "body must be an array of valid member tuples {objectType, id}")

		// nothing was applied
		resp = doRequest(t, handler, http.MethodGet, "/api/groups/"+group.ID.String(), f.adminKey, nil)
		var got api.Group
		decodeJSON(t, resp, &got)
		assert.Equal(t, len(got.Members), 0)
	})

	t.Run("missing group is not found before authorization", func(t *testing.T) {
		path := fmt.Sprintf("/api/groups/%s/members?action=add", uid.New())
		resp := doRequest(t, handler, http.MethodPost, path, f.outsiderKey, []api.Member{
			{ObjectType: "email", ID: "x@external.com"},
		})
		assert.Equal(t, resp.Code, http.StatusNotFound)
	})
}

func TestAPI_ListGroupMembers(t *testing.T) {
	srv, handler := setupServer(t)
	f := seedFixture(t, srv)

	group := createTestGroup(t, handler, f.adminKey, api.CreateGroupRequest{
		Name:    "listable",
		Email:   "listable@open-paas.org",
		Members: []string{"a@external.com", "b@external.com", "c@external.com"},
	})

	resp := doRequest(t, handler, http.MethodGet, "/api/groups/"+group.ID.String()+"/members?limit=2", f.memberKey, nil)
	assert.Equal(t, resp.Code, http.StatusOK)
	assert.Equal(t, resp.Header().Get(api.HeaderItemsCount), "2")

	var page []api.MembershipEntry
	decodeJSON(t, resp, &page)
	assert.Equal(t, len(page), 2)
	assert.DeepEqual(t, page[0].Member, api.Member{ObjectType: "email", ID: "a@external.com"})
	assert.DeepEqual(t, page[1].Member, api.Member{ObjectType: "email", ID: "b@external.com"})

	t.Run("outsider is forbidden", func(t *testing.T) {
		resp := doRequest(t, handler, http.MethodGet, "/api/groups/"+group.ID.String()+"/members", f.outsiderKey, nil)
		assert.Equal(t, resp.Code, http.StatusForbidden)
	})
}

func TestAPI_Version(t *testing.T) {
	_, handler := setupServer(t)

	resp := doRequest(t, handler, http.MethodGet, "/api/version", "", nil)
	assert.Equal(t, resp.Code, http.StatusOK)

	var version api.Version
	decodeJSON(t, resp, &version)
	assert.Assert(t, version.Version != "")
}
