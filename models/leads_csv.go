package models

import (
	"bytes"
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var leadsCSVHeader = []string{
	"id", "name", "email", "phone", "source", "status",
	"listing", "message", "created",
}

// csvCell stops spreadsheets from treating a value as a formula
func csvCell(s string) string {
	if s != "" && strings.ContainsAny(s[:1], "=+-@\t\r") {
		return "'" + s
	}
	return s
}

// WriteLeadsCSV writes the leads with a header row
func WriteLeadsCSV(w io.Writer, leads []LeadType) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	err := cw.Write(leadsCSVHeader)
	if err != nil {
		return err
	}

	for _, m := range leads {
		listing := ""
		if m.ListingID > 0 {
			listing = strconv.FormatInt(m.ListingID, 10)
		}

		err = cw.Write([]string{
			strconv.FormatInt(m.ID, 10),
			csvCell(m.Name),
			csvCell(m.Email),
			csvCell(m.Phone),
			m.Source,
			m.Status,
			listing,
			csvCell(m.Message),
			m.Meta.Created.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// GetLeadsCSV exports every lead matching the filter
func GetLeadsCSV(filter LeadFilter) ([]byte, int, error) {
	leads, _, status, err := GetLeads(filter, 0, 0)
	if err != nil {
		return nil, status, err
	}

	var buf bytes.Buffer
	err = WriteLeadsCSV(&buf, leads)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return buf.Bytes(), http.StatusOK, nil
}
