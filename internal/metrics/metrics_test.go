package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	req := require.New(t)
	m := New()

	req.NotNil(m.Registry())
	req.NotNil(m.DrawsTotal)
	req.NotNil(m.SMSSentTotal)
	req.NotNil(m.SMSFailedTotal)
	req.NotNil(m.HTTPRequestsTotal)
}

func TestHelpersWithoutGlobal(t *testing.T) {
	SetGlobal(nil)

	// must not panic
	ObserveDraw("ok", 1)
	IncSMSSent()
	IncSMSFailed("transient")
	ObserveSendDuration(time.Second)
	IncHTTPRequests("GET", "/", "200")
	SetActiveSessions(3)
}

func TestHelpersUpdateGlobal(t *testing.T) {
	req := require.New(t)
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	ObserveDraw("ok", 3)
	ObserveDraw("failed", 1000)
	IncSMSSent()
	IncSMSSent()
	IncSMSFailed("rejected")
	SetActiveSessions(2)

	req.Equal(1.0, testutil.ToFloat64(m.DrawsTotal.WithLabelValues("ok")))
	req.Equal(1.0, testutil.ToFloat64(m.DrawsTotal.WithLabelValues("failed")))
	req.Equal(2.0, testutil.ToFloat64(m.SMSSentTotal))
	req.Equal(1.0, testutil.ToFloat64(m.SMSFailedTotal.WithLabelValues("rejected")))
	req.Equal(2.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestGinMiddleware(t *testing.T) {
	req := require.New(t)
	gin.SetMode(gin.TestMode)
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/participants/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/participants/abc", nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	req.Equal(1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/participants/:id", "204")))
	req.Equal(1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
