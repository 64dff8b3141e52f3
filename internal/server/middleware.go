package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openpaas/groupd/internal"
	"github.com/openpaas/groupd/internal/access"
	"github.com/openpaas/groupd/internal/server/data"
	"github.com/openpaas/groupd/internal/server/events"
	"gorm.io/gorm"
)

// TimeoutMiddleware adds a timeout to the request context within the Gin context.
// To correctly abort long-running requests, this depends on the users of the context to
// stop working when the context cancels.
// Note: The goroutine for the request is never aborted; if the context is not
// passed down to lower packages and long-running tasks, then the app will not
// magically stop working on the request. No effort should be made to write
// an early http response here; it's up to the users of the context to watch for
// c.Request.Context().Err() or <-c.Request.Context().Done()
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// errRollback forces db.Transaction to roll back after a failed request. The
// response was already written by the handler, so the error goes nowhere else.
var errRollback = errors.New("rollback")

// DatabaseMiddleware injects a database transaction into the request context.
// The transaction commits when the handler succeeds and rolls back when it
// fails, so multi-row writes like a membership replace apply entirely or not
// at all.
func DatabaseMiddleware(db *gorm.DB, dispatcher *events.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = db.Transaction(func(tx *gorm.DB) error {
			c.Set(access.RequestContextKey, access.RequestContext{
				Request: c.Request,
				DBTxn:   tx.WithContext(c.Request.Context()),
				Events:  dispatcher,
			})
			c.Next()

			if status := c.Writer.Status(); status >= 400 {
				return errRollback
			}
			return nil
		})
	}
}

// AuthenticationMiddleware validates the access key carried in the
// Authorization header and records the authenticated user on the request
// context.
func AuthenticationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticateRequest(c); err != nil {
			sendAPIError(c, err)
			return
		}
		c.Next()
	}
}

func authenticateRequest(c *gin.Context) error {
	rCtx := getRequestContext(c)

	bearer := c.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearer, "Bearer ") {
		return internal.ErrUnauthorized
	}
	token := strings.TrimPrefix(bearer, "Bearer ")
	if token == "" {
		return internal.ErrUnauthorized
	}

	accessKey, err := data.ValidateAccessKey(rCtx.DBTxn, token)
	if err != nil {
		if errors.Is(err, data.ErrAccessKeyExpired) {
			return err
		}
		return internal.ErrUnauthorized
	}

	user, err := data.GetUser(rCtx.DBTxn, data.ByID(accessKey.IssuedFor))
	if err != nil {
		return internal.ErrUnauthorized
	}

	rCtx.Authenticated.AccessKey = accessKey
	rCtx.Authenticated.User = user
	c.Set(access.RequestContextKey, rCtx)
	return nil
}

func getRequestContext(c *gin.Context) access.RequestContext {
	raw, ok := c.Get(access.RequestContextKey)
	if !ok {
		return access.RequestContext{}
	}
	rCtx, _ := raw.(access.RequestContext)
	return rCtx
}
