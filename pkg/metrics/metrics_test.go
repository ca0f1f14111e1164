/*
Copyright 2025 The KGCL Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kgcl-io/kgcl-core/pkg/metrics"
)

func TestHandlerServesHealthzAndMetrics(t *testing.T) {
	p := metrics.New("test")
	p.StartTick()
	p.ObserveTick(true, 0, 2)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	healthResp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer healthResp.Body.Close()
	if healthResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", healthResp.StatusCode)
	}

	metricsResp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer metricsResp.Body.Close()
	body := make([]byte, 1<<20)
	n, _ := metricsResp.Body.Read(body)
	if !strings.Contains(string(body[:n]), "kgcl_test_hooks_fired_total") {
		t.Fatalf("expected hooks_fired_total series in metrics output, got: %s", body[:n])
	}
}
