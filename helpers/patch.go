package helpers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
)

// PatchType is a single json-patch operation
type PatchType struct {
	Operation string          `json:"op"`
	Path      string          `json:"path"`
	From      string          `json:"from,omitempty"`
	RawValue  interface{}     `json:"value,omitempty"`
	Bool      sql.NullBool    `json:"-"`
	String    sql.NullString  `json:"-"`
	Float64   sql.NullFloat64 `json:"-"`
}

// TestPatch partially implements http://tools.ietf.org/html/rfc6902, only the
// replace operation is supported
func TestPatch(patches []PatchType) (int, error) {
	if len(patches) == 0 {
		return http.StatusBadRequest, errors.New("Patch: no patches were provided")
	}

	for _, v := range patches {
		switch v.Operation {
		case "add", "copy", "move", "remove", "test":
			return http.StatusNotImplemented,
				errors.New("Patch: json-patch '" + v.Operation + "' operation not implemented")
		case "replace":
			if strings.TrimSpace(v.Path) == "" || v.RawValue == nil {
				return http.StatusBadRequest,
					errors.New("Patch: replace operation incorrectly specified")
			}
		default:
			return http.StatusBadRequest, errors.New("Patch: unsupported operation in patch")
		}
	}

	return http.StatusOK, nil
}

// ScanRawValue types the raw JSON value of the patch
func (p *PatchType) ScanRawValue() (int, error) {
	switch v := p.RawValue.(type) {
	case bool:
		p.Bool = sql.NullBool{Bool: v, Valid: true}
	case string:
		p.String = sql.NullString{String: v, Valid: true}
	case float64:
		p.Float64 = sql.NullFloat64{Float64: v, Valid: true}
	default:
		return http.StatusNotImplemented,
			errors.New("Patch: only boolean, string and number values are patchable")
	}

	return http.StatusOK, nil
}
