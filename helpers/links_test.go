package helpers

import (
	"net/url"
	"testing"
)

func TestPageCount(t *testing.T) {
	message := "GetPageCount(%d, %d) = %d should be %d"

	tests := []struct {
		total int64
		limit int64
		want  int64
	}{
		{0, DefaultQueryLimit, 0},
		{1, DefaultQueryLimit, 1},
		{24, DefaultQueryLimit, 1},
		{25, DefaultQueryLimit, 1},
		{26, DefaultQueryLimit, 2},
		{50, DefaultQueryLimit, 2},
		{51, DefaultQueryLimit, 3},
		{4, 5, 1},
		{6, 5, 2},
		{11, 5, 3},
		{11, 0, 1},
	}

	for _, tt := range tests {
		result := GetPageCount(tt.total, tt.limit)
		if result != tt.want {
			t.Errorf(message, tt.total, tt.limit, result, tt.want)
		}
	}
}

func TestGetMaxOffset(t *testing.T) {
	message := "GetMaxOffset(%d, %d) = %d should be %d"

	tests := []struct {
		total int64
		limit int64
		want  int64
	}{
		{0, DefaultQueryLimit, 0},
		{25, DefaultQueryLimit, 0},
		{26, DefaultQueryLimit, 25},
		{51, DefaultQueryLimit, 50},
		{5, 5, 0},
		{6, 5, 5},
	}

	for _, tt := range tests {
		result := GetMaxOffset(tt.total, tt.limit)
		if result != tt.want {
			t.Errorf(message, tt.total, tt.limit, result, tt.want)
		}
	}
}

func TestGetLimitAndOffset(t *testing.T) {
	tests := []struct {
		query  string
		limit  int64
		offset int64
		ok     bool
	}{
		{"", DefaultQueryLimit, 0, true},
		{"limit=10&offset=20", 10, 20, true},
		{"limit=7", 0, 0, false},
		{"limit=0", 0, 0, false},
		{"limit=500", 0, 0, false},
		{"limit=abc", 0, 0, false},
		{"offset=-25", 0, 0, false},
		{"limit=10&offset=15", 0, 0, false},
	}

	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		limit, offset, _, err := GetLimitAndOffset(q)
		if tt.ok && err != nil {
			t.Errorf("GetLimitAndOffset(%q) unexpected error %v", tt.query, err)
			continue
		}
		if !tt.ok {
			if err == nil {
				t.Errorf("GetLimitAndOffset(%q) expected an error", tt.query)
			}
			continue
		}
		if limit != tt.limit || offset != tt.offset {
			t.Errorf(
				"GetLimitAndOffset(%q) = %d, %d should be %d, %d",
				tt.query, limit, offset, tt.limit, tt.offset,
			)
		}
	}
}

func TestGetStatusFilter(t *testing.T) {
	allowed := []string{"active", "pending", "sold"}

	q, _ := url.ParseQuery("status=pending")
	s, _, err := GetStatusFilter(q, allowed)
	if err != nil || s != "pending" {
		t.Errorf("GetStatusFilter(pending) = %q, %v", s, err)
	}

	q, _ = url.ParseQuery("status=bogus")
	if _, _, err = GetStatusFilter(q, allowed); err == nil {
		t.Error("GetStatusFilter(bogus) should fail")
	}

	q, _ = url.ParseQuery("")
	s, _, err = GetStatusFilter(q, allowed)
	if err != nil || s != "" {
		t.Errorf("GetStatusFilter() = %q, %v", s, err)
	}
}

func TestGetArrayLinks(t *testing.T) {
	u, _ := url.Parse("https://dash.example.com/api/v1/listings?limit=5&offset=10")

	links := GetArrayLinks(*u, 10, 5, 30)

	rels := map[string]string{}
	for _, l := range links {
		rels[l.Rel] = l.Href
	}

	for _, rel := range []string{"first", "prev", "self", "next", "last"} {
		if _, ok := rels[rel]; !ok {
			t.Errorf("GetArrayLinks missing %s link", rel)
		}
	}

	if rels["last"] != "https://dash.example.com/api/v1/listings?limit=5&offset=25" {
		t.Errorf("last link is %s", rels["last"])
	}
	if rels["first"] != "https://dash.example.com/api/v1/listings?limit=5" {
		t.Errorf("first link is %s", rels["first"])
	}
}
