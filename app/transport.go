package app

import (
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const userAgent = "feedsync/1.0 (+https://github.com/fiffu/feedsync)"

func NewTransport(lc fx.Lifecycle, log *zap.Logger) http.RoundTripper {
	return &transport{http.DefaultTransport, log}
}

type transport struct {
	base http.RoundTripper
	log  *zap.Logger
}

func (tpt *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return tpt.base.RoundTrip(req)
}
