package httpadapter

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const retryAfterHeader = "Retry-After"

// corsPolicy is the header set stamped on every response. Retry-After must be
// exposed or a browser client cannot read the wait hint on a 202 completion.
type corsPolicy struct {
	AllowOrigin   string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        time.Duration
}

func defaultCORSPolicy() corsPolicy {
	return corsPolicy{
		AllowOrigin:   "*",
		AllowMethods:  []string{consts.MethodGet, consts.MethodPost, consts.MethodOptions},
		AllowHeaders:  []string{"Content-Type", playerIDHeader},
		ExposeHeaders: []string{retryAfterHeader},
		MaxAge:        10 * time.Minute,
	}
}

func (p corsPolicy) apply(h *protocol.ResponseHeader) {
	h.Set("Access-Control-Allow-Origin", p.AllowOrigin)
	h.Set("Access-Control-Allow-Methods", strings.Join(p.AllowMethods, ","))
	h.Set("Access-Control-Allow-Headers", strings.Join(p.AllowHeaders, ","))
	if len(p.ExposeHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(p.ExposeHeaders, ","))
	}
	h.Set("Access-Control-Max-Age", strconv.Itoa(int(p.MaxAge/time.Second)))
}

// middleware answers preflight requests itself; anything else carries on to
// the route with the policy headers already set.
func (p corsPolicy) middleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		p.apply(&ctx.Response.Header)
		if string(ctx.Method()) == consts.MethodOptions {
			ctx.AbortWithStatus(consts.StatusNoContent)
			return
		}
		ctx.Next(c)
	}
}
