package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordsRequests(t *testing.T) {
	h := Metrics(nil, time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/brew", http.MethodGet, "418"))
	req := httptest.NewRequest(http.MethodGet, "/brew", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/brew", http.MethodGet, "418"))
	if after != before+1 {
		t.Fatalf("requests counter = %v, want %v", after, before+1)
	}
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{150: "1xx", 204: "2xx", 301: "3xx", 404: "4xx", 503: "5xx"}
	for code, want := range cases {
		if got := statusClass(code); got != want {
			t.Fatalf("statusClass(%d) = %s, want %s", code, got, want)
		}
	}
}
