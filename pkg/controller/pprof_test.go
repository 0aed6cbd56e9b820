package controller_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"typowatch/pkg/controller"
)

func TestPprofMux(t *testing.T) {
	mux := controller.PprofMux("/debug/pprof")

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "index", path: "/debug/pprof/", status: http.StatusOK},
		{name: "cmdline", path: "/debug/pprof/cmdline", status: http.StatusOK},
		{name: "named profile", path: "/debug/pprof/goroutine?debug=1", status: http.StatusOK},
		{name: "unknown profile", path: "/debug/pprof/nope", status: http.StatusNotFound},
		{name: "outside prefix", path: "/other", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)
		})
	}
}
