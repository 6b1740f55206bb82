package api

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestTimeoutMiddlewareReleasesHandlerGoroutine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TimeoutMiddleware(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(60 * time.Millisecond)
	})

	base := runtime.NumGoroutine()
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/slow", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusRequestTimeout {
			t.Fatalf("status=%d, expected 408", w.Code)
		}
	}

	// Handler goroutines must finish once their sleeps elapse instead of
	// blocking on the completion send forever.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= base+1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("handler goroutines leaked: %d running, started with %d", runtime.NumGoroutine(), base)
}
