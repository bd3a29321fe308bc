package e2e

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestGeant4Status_Unconfigured(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/geant4/status", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	status := parseJSON(t, resp)
	if status["configured"] != false {
		t.Errorf("expected unconfigured engine, got %v", status["configured"])
	}
	if status["executor_ready"] != false {
		t.Errorf("expected executor not ready, got %v", status["executor_ready"])
	}
	verification, ok := status["verification"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected verification block, got %v", status["verification"])
	}
	if verification["valid"] != false {
		t.Errorf("expected invalid verification, got %v", verification["valid"])
	}
	issues, ok := verification["issues"].([]interface{})
	if !ok || len(issues) == 0 {
		t.Fatalf("expected issues, got %v", verification["issues"])
	}
}

func TestGeant4Configure(t *testing.T) {
	ta := setupApp(t)

	install := t.TempDir()
	dataDir := filepath.Join(install, "share", "Geant4", "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}

	body := fmt.Sprintf(`{"install_path": %q}`, install)
	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/geant4/configure", body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	status := parseJSON(t, resp)
	if status["configured"] != true {
		t.Errorf("expected configured engine, got %v", status["configured"])
	}
	if status["install_path"] != install {
		t.Errorf("expected install_path %q, got %v", install, status["install_path"])
	}
	// The data directory under the install tree is picked up automatically.
	if status["data_path"] != dataDir {
		t.Errorf("expected auto-detected data_path %q, got %v", dataDir, status["data_path"])
	}
	verification := status["verification"].(map[string]interface{})
	if verification["valid"] != true {
		t.Errorf("expected valid verification, got %v", verification)
	}
}

func TestGeant4Configure_ExplicitDataPath(t *testing.T) {
	ta := setupApp(t)

	install := t.TempDir()
	data := t.TempDir()

	body := fmt.Sprintf(`{"install_path": %q, "data_path": %q}`, install, data)
	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/geant4/configure", body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	status := parseJSON(t, resp)
	if status["data_path"] != data {
		t.Errorf("expected explicit data_path %q, got %v", data, status["data_path"])
	}
}

func TestGeant4Verify(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/geant4/verify", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "error" {
		t.Errorf("expected error status before configuration, got %v", result["status"])
	}

	// Configure a valid installation, then verification reports ok.
	install := t.TempDir()
	if err := os.MkdirAll(filepath.Join(install, "share", "Geant4", "data"), 0o755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}
	resp, err = doRequest(ta.app, http.MethodPost, "/api/v1/geant4/configure", fmt.Sprintf(`{"install_path": %q}`, install), nil)
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	readBody(t, resp)

	resp, err = doRequest(ta.app, http.MethodGet, "/api/v1/geant4/verify", "", nil)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result = parseJSON(t, resp)
	if result["status"] != "ok" {
		t.Errorf("expected ok status after configuration, got %v", result)
	}
}

func TestGeant4Environment(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/geant4/environment", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if _, ok := result["environment_variables"].(map[string]interface{}); !ok {
		t.Errorf("expected environment_variables map, got %v", result["environment_variables"])
	}
	dataVars, ok := result["data_variables"].([]interface{})
	if !ok || len(dataVars) == 0 {
		t.Fatalf("expected data variable catalogue, got %v", result["data_variables"])
	}
	found := false
	for _, v := range dataVars {
		if v == "G4LEDATA" {
			found = true
		}
	}
	if !found {
		t.Error("expected G4LEDATA in data variables")
	}
}

func TestGeant4BuildInstructions(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/geant4/build-instructions", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["title"] == nil {
		t.Error("expected a title")
	}
	prereqs, ok := result["prerequisites"].([]interface{})
	if !ok || len(prereqs) == 0 {
		t.Errorf("expected prerequisites, got %v", result["prerequisites"])
	}
	steps, ok := result["steps"].(map[string]interface{})
	if !ok || steps["linux"] == nil || steps["windows"] == nil {
		t.Errorf("expected linux and windows steps, got %v", result["steps"])
	}
}
