package server

import (
	"net/http"
	"testing"

	"fx-wallet-service/internal/router"

	"github.com/stretchr/testify/assert"
)

func TestWriteTimeoutOutlastsRequestTimeout(t *testing.T) {
	srv := newHTTPServer(":0", http.NotFoundHandler())
	assert.Greater(t, srv.WriteTimeout, router.RequestTimeout)
	assert.Greater(t, srv.IdleTimeout, srv.ReadTimeout)
}
