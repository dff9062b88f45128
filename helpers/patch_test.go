package helpers

import (
	"net/http"
	"testing"
)

func TestTestPatch(t *testing.T) {
	status, err := TestPatch([]PatchType{})
	if err == nil || status != http.StatusBadRequest {
		t.Errorf("empty patch = %d %v", status, err)
	}

	status, err = TestPatch([]PatchType{{Operation: "replace", Path: "/status", RawValue: "sold"}})
	if err != nil || status != http.StatusOK {
		t.Errorf("replace patch = %d %v", status, err)
	}

	status, _ = TestPatch([]PatchType{{Operation: "move", Path: "/a", From: "/b"}})
	if status != http.StatusNotImplemented {
		t.Errorf("move patch = %d should be %d", status, http.StatusNotImplemented)
	}

	status, _ = TestPatch([]PatchType{{Operation: "replace", Path: " "}})
	if status != http.StatusBadRequest {
		t.Errorf("bad replace patch = %d should be %d", status, http.StatusBadRequest)
	}
}

func TestScanRawValue(t *testing.T) {
	p := PatchType{RawValue: 425000.0}
	if _, err := p.ScanRawValue(); err != nil || !p.Float64.Valid {
		t.Errorf("number patch did not scan: %v", err)
	}

	p = PatchType{RawValue: true}
	if _, err := p.ScanRawValue(); err != nil || !p.Bool.Bool {
		t.Errorf("bool patch did not scan: %v", err)
	}

	p = PatchType{RawValue: []interface{}{}}
	if _, err := p.ScanRawValue(); err == nil {
		t.Error("array patch should not scan")
	}
}
