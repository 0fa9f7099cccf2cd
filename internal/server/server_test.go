package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/cloudplot/cloudplot/pkg/pipeline"
	"github.com/cloudplot/cloudplot/pkg/theme"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, theme.Set{}, logger)
	t.Cleanup(func() { _ = runner.Close() })
	return NewServer(runner, nil, logger)
}

func discoverBody() []byte {
	return []byte(`{
		"scopes": [{
			"provider": "azure",
			"account": "s1",
			"records": [
				{"id": "/subscriptions/s1/resourceGroups/rg1", "name": "rg1", "type": "microsoft.resources/resourcegroups", "location": "westeurope"},
				{"id": "/subscriptions/s1/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/vm1", "name": "vm1", "type": "microsoft.compute/virtualmachines", "location": "westeurope", "resourceGroup": "/subscriptions/s1/resourceGroups/rg1"}
			]
		}]
	}`)
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestDiscoverInline(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/discover", "application/json", bytes.NewReader(discoverBody()))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var out discoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.NodeCount != 2 {
		t.Errorf("NodeCount = %d, want 2", out.NodeCount)
	}
	if out.EdgeCount != 1 {
		t.Errorf("EdgeCount = %d, want 1", out.EdgeCount)
	}
	if out.GraphHash == "" {
		t.Error("GraphHash is empty")
	}
	// No store configured: discovery succeeds without a snapshot id.
	if out.SnapshotID != "" {
		t.Errorf("SnapshotID = %q, want empty", out.SnapshotID)
	}
}

func TestDiscoverEmptyScopes(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/discover", "application/json", bytes.NewReader([]byte(`{"scopes": []}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDiagramInline(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := []byte(`{
		"scopes": [{
			"provider": "azure",
			"records": [
				{"id": "/subscriptions/s1/resourceGroups/rg1", "name": "rg1", "type": "microsoft.resources/resourcegroups"}
			]
		}],
		"algorithm": "circular",
		"formats": ["json", "dot"]
	}`)

	resp, err := http.Post(ts.URL+"/v1/diagrams", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, raw)
	}

	var out diagramResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.DiagramID == "" {
		t.Error("DiagramID is empty")
	}
	if len(out.Artifacts["dot"]) == 0 {
		t.Error("missing dot artifact")
	}
}

func TestDiagramInvalidAlgorithm(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := []byte(`{
		"scopes": [{"provider": "azure", "records": [{"id": "/subscriptions/s1/resourceGroups/rg1"}]}],
		"algorithm": "radial"
	}`)

	resp, err := http.Post(ts.URL+"/v1/diagrams", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	var out map[string]map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["error"]["code"] != "INVALID_ALGORITHM" {
		t.Errorf("error code = %q, want INVALID_ALGORITHM", out["error"]["code"])
	}
}

func TestDiagramWithoutGraph(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/diagrams", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSnapshotEndpointsWithoutStore(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/snapshots")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}
