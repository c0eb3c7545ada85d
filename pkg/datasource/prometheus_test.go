package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakePrometheus serves canned Prometheus API responses. The "up"
// reachability probe always succeeds unless probeFails is set; every
// other instant query gets the configured vector body.
type fakePrometheus struct {
	vectorBody string
	matrixBody string
	probeFails bool
	queryFails bool
	requests   int
}

func (f *fakePrometheus) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.requests++

		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		expr := r.Form.Get("query")

		w.Header().Set("Content-Type", "application/json")

		if expr == "up" {
			if f.probeFails {
				http.Error(w, "probe down", http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1690000000,"1"]}]}}`)
			return
		}

		if f.queryFails {
			http.Error(w, "query exploded", http.StatusInternalServerError)
			return
		}

		if r.URL.Path == "/api/v1/query_range" {
			fmt.Fprint(w, f.matrixBody)
			return
		}
		fmt.Fprint(w, f.vectorBody)
	}
}

func newTestSource(t *testing.T, fake *fakePrometheus) (*PrometheusSource, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	source, err := NewPrometheusSource(server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewPrometheusSource failed: %v", err)
	}
	return source, server
}

func TestQueryTakesLastSample(t *testing.T) {
	fake := &fakePrometheus{
		vectorBody: `{"status":"success","data":{"resultType":"vector","result":[` +
			`{"metric":{"pod":"a"},"value":[1690000000,"1.0"]},` +
			`{"metric":{"pod":"b"},"value":[1690000000,"2.0"]},` +
			`{"metric":{"pod":"c"},"value":[1690000000,"2.5"]}]}}`,
	}
	source, _ := newTestSource(t, fake)

	sample, err := source.Query(context.Background(), `sum(rate(fastapi_requests_total[1m]))`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !sample.Present {
		t.Fatal("Expected present sample, got absent")
	}
	if sample.Value != 2.5 {
		t.Errorf("Expected last value 2.5, got %v", sample.Value)
	}
}

func TestQueryFirstTakesFirstSample(t *testing.T) {
	fake := &fakePrometheus{
		vectorBody: `{"status":"success","data":{"resultType":"vector","result":[` +
			`{"metric":{"pod":"a"},"value":[1690000000,"1.0"]},` +
			`{"metric":{"pod":"b"},"value":[1690000000,"2.0"]}]}}`,
	}
	source, _ := newTestSource(t, fake)

	sample, err := source.QueryFirst(context.Background(), `predict_linear(m[1h], 3600)`)
	if err != nil {
		t.Fatalf("QueryFirst failed: %v", err)
	}
	if sample.Value != 1.0 {
		t.Errorf("Expected first value 1.0, got %v", sample.Value)
	}
}

func TestQueryAbsentIsNotAnError(t *testing.T) {
	fake := &fakePrometheus{
		vectorBody: `{"status":"success","data":{"resultType":"vector","result":[]}}`,
	}
	source, _ := newTestSource(t, fake)

	sample, err := source.Query(context.Background(), `missing_metric`)
	if err != nil {
		t.Fatalf("Expected no error for empty result, got: %v", err)
	}
	if sample.Present {
		t.Error("Expected absent sample for empty result")
	}
	if got := sample.Format("%.2f"); got != "N/A" {
		t.Errorf("Expected display N/A for absent sample, got %q", got)
	}
}

func TestQueryRequestRateDisplay(t *testing.T) {
	fake := &fakePrometheus{
		vectorBody: `{"status":"success","data":{"resultType":"vector","result":[` +
			`{"metric":{},"value":[1690000000,"2.5"]}]}}`,
	}
	source, _ := newTestSource(t, fake)

	sample, err := source.Query(context.Background(), `sum(rate(fastapi_requests_total[1m]))`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	line := fmt.Sprintf("Request Rate: %s req/s", sample.FormatCompact())
	if line != "Request Rate: 2.5 req/s" {
		t.Errorf("Expected %q, got %q", "Request Rate: 2.5 req/s", line)
	}
}

func TestUnreachableBackendFailsFast(t *testing.T) {
	fake := &fakePrometheus{probeFails: true}
	source, _ := newTestSource(t, fake)

	_, err := source.Query(context.Background(), `up_or_not`)
	if !errors.Is(err, ErrBackendUnreachable) {
		t.Fatalf("Expected ErrBackendUnreachable, got: %v", err)
	}

	after := fake.requests
	if _, err := source.Query(context.Background(), `another`); !errors.Is(err, ErrBackendUnreachable) {
		t.Fatalf("Expected cached ErrBackendUnreachable, got: %v", err)
	}
	if fake.requests != after {
		t.Errorf("Expected no new requests after failed probe, got %d extra", fake.requests-after)
	}
}

func TestQueryFailureOnReachableBackend(t *testing.T) {
	fake := &fakePrometheus{queryFails: true}
	source, _ := newTestSource(t, fake)

	_, err := source.Query(context.Background(), `broken`)
	if !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("Expected ErrQueryFailed, got: %v", err)
	}
	if errors.Is(err, ErrBackendUnreachable) {
		t.Error("Query failure on a reachable backend must not report unreachable")
	}
}

func TestQuerySeriesLabelsPods(t *testing.T) {
	fake := &fakePrometheus{
		vectorBody: `{"status":"success","data":{"resultType":"vector","result":[` +
			`{"metric":{"pod":"fastapi-app-1"},"value":[1690000000,"3"]},` +
			`{"metric":{},"value":[1690000000,"7"]}]}}`,
	}
	source, _ := newTestSource(t, fake)

	samples, err := source.QuerySeries(context.Background(), `kube_pod_container_status_restarts_total`)
	if err != nil {
		t.Fatalf("QuerySeries failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0].Pod != "fastapi-app-1" || samples[0].Sample.Value != 3 {
		t.Errorf("Unexpected first sample: %+v", samples[0])
	}
	if samples[1].Pod != "unknown" {
		t.Errorf("Expected unlabeled series to map to pod 'unknown', got %q", samples[1].Pod)
	}
}

func TestQueryRangeFlattensMatrix(t *testing.T) {
	fake := &fakePrometheus{
		matrixBody: `{"status":"success","data":{"resultType":"matrix","result":[` +
			`{"metric":{},"values":[[1690000000,"1"],[1690000060,"2"],[1690000120,"3"]]}]}}`,
	}
	source, _ := newTestSource(t, fake)

	samples, err := source.QueryRange(context.Background(), `metric`, 30*time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("QueryRange failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(samples))
	}
	if samples[2].Value != 3 {
		t.Errorf("Expected final sample 3, got %v", samples[2].Value)
	}
}

func TestQueryRangeEmptyMatrix(t *testing.T) {
	fake := &fakePrometheus{
		matrixBody: `{"status":"success","data":{"resultType":"matrix","result":[]}}`,
	}
	source, _ := newTestSource(t, fake)

	samples, err := source.QueryRange(context.Background(), `metric`, 30*time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("QueryRange failed: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("Expected empty slice for empty matrix, got %d samples", len(samples))
	}
}
