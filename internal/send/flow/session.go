package flow

import (
	"github.com/cds-snc/notification-admin-sub002/internal/send/draft"

	"github.com/gin-gonic/gin"
)

const stateKey = "sendState"

// WithState stores the session state on the gin context for the send
// handlers.
func WithState(c *gin.Context, st *draft.State) {
	c.Set(stateKey, st)
}

func StateFrom(c *gin.Context) (*draft.State, bool) {
	v, ok := c.Get(stateKey)
	if !ok {
		return nil, false
	}
	st, ok := v.(*draft.State)
	return st, ok && st != nil
}
