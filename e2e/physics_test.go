package e2e

import (
	"net/http"
	"testing"
)

func TestPhysicsTemplates(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/physics/templates", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	templates := parseJSON(t, resp)
	for _, name := range []string{"standard", "medical", "shielding", "low_energy"} {
		if templates[name] == nil {
			t.Errorf("expected template %q", name)
		}
	}
	medical, ok := templates["medical"].(map[string]interface{})
	if !ok || medical["physics_list"] != "QGSP_BIC" {
		t.Errorf("expected medical template with QGSP_BIC, got %v", templates["medical"])
	}
}

func TestPhysicsTemplate_ByName(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/physics/templates/medical", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	cfg := parseJSON(t, resp)
	if cfg["physics_list"] != "QGSP_BIC" {
		t.Errorf("expected QGSP_BIC, got %v", cfg["physics_list"])
	}
	if cfg["em_physics"] != "option4" {
		t.Errorf("expected option4 EM physics, got %v", cfg["em_physics"])
	}
	if cfg["default_cut"] != 0.1 {
		t.Errorf("expected 0.1 mm cut, got %v", cfg["default_cut"])
	}
}

func TestPhysicsTemplate_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/physics/templates/imaginary", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestPhysicsLists(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/physics/physics-lists", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	lists := parseJSONList(t, resp)
	if len(lists) != 12 {
		t.Errorf("expected 12 physics lists, got %d", len(lists))
	}
	names := map[string]bool{}
	for _, l := range lists {
		entry := l.(map[string]interface{})
		if name, ok := entry["name"].(string); ok {
			names[name] = true
		}
	}
	for _, want := range []string{"FTFP_BERT", "QGSP_BIC", "Shielding"} {
		if !names[want] {
			t.Errorf("expected physics list %s", want)
		}
	}
}

func TestPhysicsListInfo(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/physics/physics-lists/QGSP_BIC", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	info := parseJSON(t, resp)
	if info["name"] != "QGSP_BIC" {
		t.Errorf("expected QGSP_BIC info, got %v", info["name"])
	}
	if info["description"] == nil || info["description"] == "" {
		t.Error("expected a description")
	}
}

func TestPhysicsListInfo_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/physics/physics-lists/NOT_A_LIST", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestPhysicsEMOptions(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/v1/physics/em-options", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	options := parseJSONList(t, resp)
	if len(options) != 8 {
		t.Errorf("expected 8 EM options, got %d", len(options))
	}
	first, ok := options[0].(map[string]interface{})
	if !ok || first["value"] != "standard" {
		t.Errorf("expected 'standard' first, got %v", options[0])
	}
}

func TestPhysicsRecommend(t *testing.T) {
	ta := setupApp(t)

	body := `{"application": "proton therapy dosimetry", "energy_mev": 200, "particles": ["proton"]}`
	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics/recommend", body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["recommended"] != "QGSP_BIC" {
		t.Errorf("expected QGSP_BIC recommendation, got %v", result["recommended"])
	}
	info, ok := result["info"].(map[string]interface{})
	if !ok || info["name"] != "QGSP_BIC" {
		t.Errorf("expected info block for QGSP_BIC, got %v", result["info"])
	}
	if result["reason"] == nil {
		t.Error("expected a reason")
	}
}

func TestPhysicsRecommend_Shielding(t *testing.T) {
	ta := setupApp(t)

	body := `{"application": "neutron shielding wall", "energy_mev": 14, "particles": ["neutron"]}`
	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics/recommend", body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["recommended"] != "Shielding" {
		t.Errorf("expected Shielding recommendation, got %v", result["recommended"])
	}
}

func TestPhysicsRecommend_MissingFields(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics/recommend", `{"energy_mev": 5}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
	assertErrorCode(t, resp, "VALIDATION_ERROR")
}

func TestPhysicsCreate(t *testing.T) {
	ta := setupApp(t)

	body := `{"physics_list": "QGSP_BERT", "em_physics": "option3", "default_cut": 0.5}`
	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics?name=beamline", body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusCreated)

	result := parseJSON(t, resp)
	if result["physics_id"] != "beamline" {
		t.Errorf("expected physics_id 'beamline', got %v", result["physics_id"])
	}

	resp, err = doRequest(ta.app, http.MethodGet, "/api/v1/physics/beamline", "", nil)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	cfg := parseJSON(t, resp)
	if cfg["physics_list"] != "QGSP_BERT" {
		t.Errorf("expected stored QGSP_BERT, got %v", cfg["physics_list"])
	}
	if cfg["default_cut"] != 0.5 {
		t.Errorf("expected stored cut 0.5, got %v", cfg["default_cut"])
	}
	// Defaults fill the unset fields.
	if cfg["enable_decay"] != true {
		t.Errorf("expected enable_decay default true, got %v", cfg["enable_decay"])
	}

	resp, err = doRequest(ta.app, http.MethodGet, "/api/v1/physics", "", nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if ids := parseJSONList(t, resp); len(ids) != 1 || ids[0] != "beamline" {
		t.Errorf("expected list [beamline], got %v", ids)
	}
}

func TestPhysicsCreate_MissingName(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics", `{"physics_list": "FTFP_BERT"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
	errObj := assertErrorCode(t, resp, "VALIDATION_ERROR")
	if msg, _ := errObj["message"].(string); !contains(msg, "name") {
		t.Errorf("expected message about the name parameter, got %q", msg)
	}
}

func TestPhysicsCreate_BadEnergyLimits(t *testing.T) {
	ta := setupApp(t)

	body := `{"physics_list": "FTFP_BERT", "low_energy_limit": 10, "high_energy_limit": 5}`
	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics?name=inverted", body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
	errObj := assertErrorCode(t, resp, "VALIDATION_ERROR")

	details, ok := errObj["details"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected details, got %v", errObj["details"])
	}
	issues, ok := details["issues"].([]interface{})
	if !ok || len(issues) == 0 {
		t.Fatalf("expected issues, got %v", details["issues"])
	}
	if msg := issues[0].(string); !contains(msg, "must be less than") {
		t.Errorf("expected energy limit issue, got %q", msg)
	}
}

func TestPhysicsValidate_Inline(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics/validate", `{"default_cut": 200}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["valid"] != true {
		t.Errorf("expected valid config, got %v", result)
	}
	warnings, ok := result["warnings"].([]interface{})
	if !ok || len(warnings) == 0 {
		t.Fatalf("expected cut warning, got %v", result["warnings"])
	}
	if msg := warnings[0].(string); !contains(msg, "Large default cut") {
		t.Errorf("expected large cut warning, got %q", msg)
	}
}

func TestPhysicsValidateSaved(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics?name=check-me", `{}`, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	readBody(t, resp)

	resp, err = doRequest(ta.app, http.MethodPost, "/api/v1/physics/check-me/validate", "", nil)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	if result := parseJSON(t, resp); result["valid"] != true {
		t.Errorf("expected valid config, got %v", result)
	}
}

func TestPhysicsMacro(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics?name=macro-source", `{"default_cut": 2}`, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	readBody(t, resp)

	resp, err = doRequest(ta.app, http.MethodGet, "/api/v1/physics/macro-source/macro", "", nil)
	if err != nil {
		t.Fatalf("macro failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["physics_id"] != "macro-source" {
		t.Errorf("expected physics_id 'macro-source', got %v", result["physics_id"])
	}
	commands, ok := result["macro_commands"].([]interface{})
	if !ok || len(commands) == 0 {
		t.Fatalf("expected macro commands, got %v", result["macro_commands"])
	}
	foundCut := false
	for _, cmd := range commands {
		if contains(cmd.(string), "/run/setCut 2 mm") {
			foundCut = true
		}
	}
	if !foundCut {
		t.Errorf("expected cut command in macro, got %v", commands)
	}
}

func TestPhysicsDelete(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/v1/physics?name=short-lived", `{}`, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	readBody(t, resp)

	resp, err = doRequest(ta.app, http.MethodDelete, "/api/v1/physics/short-lived", "", nil)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	resp, err = doRequest(ta.app, http.MethodGet, "/api/v1/physics/short-lived", "", nil)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}
