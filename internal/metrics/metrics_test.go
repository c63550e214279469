package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveProbeCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(probesTotal.WithLabelValues("not_found"))
	ObserveProbe("not_found")
	ObserveProbe("not_found")
	if got := testutil.ToFloat64(probesTotal.WithLabelValues("not_found")) - before; got != 2 {
		t.Errorf("expected 2 not_found probes, got %f", got)
	}
}

func TestObserveRun(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues("downloaded"))
	ObserveRun("downloaded")
	if got := testutil.ToFloat64(runsTotal.WithLabelValues("downloaded")) - before; got != 1 {
		t.Errorf("expected 1 downloaded run, got %f", got)
	}
}

func TestObserveDownloadBytesIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(downloadBytesTotal)
	ObserveDownloadBytes(0)
	ObserveDownloadBytes(-5)
	ObserveDownloadBytes(128)
	if got := testutil.ToFloat64(downloadBytesTotal) - before; got != 128 {
		t.Errorf("expected 128 bytes, got %f", got)
	}
}

func TestObserveRecordError(t *testing.T) {
	before := testutil.ToFloat64(recordErrorsTotal)
	ObserveRecordError()
	if got := testutil.ToFloat64(recordErrorsTotal) - before; got != 1 {
		t.Errorf("expected 1 record error, got %f", got)
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "200"))
	ObserveHTTPRequest("POST", "/download", 200, 25*time.Millisecond)
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "200")) - before; got != 1 {
		t.Errorf("expected 1 POST 200 request, got %f", got)
	}
}

func TestObserveRateLimitDelay(t *testing.T) {
	ObserveRateLimitDelay("www.cbp.gov", 150*time.Millisecond)
	if got := testutil.CollectAndCount(rateLimitDelaySeconds); got < 1 {
		t.Errorf("expected rate limit histogram series, got %d", got)
	}
}
