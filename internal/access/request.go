package access

import (
	"context"
	"net/http"

	"gorm.io/gorm"

	"github.com/openpaas/groupd/internal/server/events"
	"github.com/openpaas/groupd/internal/server/models"
)

const RequestContextKey = "requestContext"

// RequestContext carries everything an access function needs: the request,
// the transaction it runs in, the event dispatcher, and the acting identity.
// The acting identity is always passed explicitly through this struct, never
// read from process-global state.
type RequestContext struct {
	Request *http.Request
	DBTxn   *gorm.DB
	Events  *events.Dispatcher

	Authenticated Authenticated
}

// Authenticated holds the acting identity. A nil User means the request was
// not authenticated.
type Authenticated struct {
	AccessKey *models.AccessKey
	User      *models.User
}

func (rc RequestContext) ctx() context.Context {
	if rc.Request == nil {
		return context.Background()
	}
	return rc.Request.Context()
}

func (rc RequestContext) publish(e events.Event) {
	if rc.Events != nil {
		rc.Events.Publish(e)
	}
}
