//go:build unit

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/lerenn/bugme/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPages    = 5
	testPageSize = 20
)

func pageItems(page int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, testPageSize)
	for i := 0; i < testPageSize; i++ {
		items = append(items, map[string]interface{}{
			"id": fmt.Sprintf("%d-%d", page, i),
		})
	}
	return items
}

func requestedPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func TestFetchAll_LinkCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := requestedPage(r)
		if page < testPages {
			w.Header().Set("Link", fmt.Sprintf(
				`<%[1]s/items?page=%[2]d>; rel="next", <%[1]s/items?page=%[3]d>; rel="last"`,
				"http://"+r.Host, page+1, testPages))
		}
		_ = json.NewEncoder(w).Encode(pageItems(page))
	}))
	defer server.Close()

	generic := newGeneric("test", server.URL, "", logger.NewNoopLogger())
	defer generic.session.close()

	items := generic.fetchAll(context.Background(), server.URL+"/items", nil, linkCursor, "")
	require.Len(t, items, testPages*testPageSize)

	seen := make(map[string]bool)
	for _, item := range items {
		seen[item["id"].(string)] = true
	}
	assert.Len(t, seen, testPages*testPageSize)
}

func TestFetchAll_BodyCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := requestedPage(r)
		body := map[string]interface{}{
			"issues": pageItems(page),
			"pagination": map[string]interface{}{
				"pages": testPages,
			},
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	generic := newGeneric("test", server.URL, "", logger.NewNoopLogger())
	defer generic.session.close()

	items := generic.fetchAll(context.Background(), server.URL+"/issues", nil, bodyCursor, "issues")
	require.Len(t, items, testPages*testPageSize)

	seen := make(map[string]bool)
	for _, item := range items {
		seen[item["id"].(string)] = true
	}
	assert.Len(t, seen, testPages*testPageSize)
}

func TestFetchAll_SinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(pageItems(1))
	}))
	defer server.Close()

	generic := newGeneric("test", server.URL, "", logger.NewNoopLogger())
	defer generic.session.close()

	items := generic.fetchAll(context.Background(), server.URL+"/items", nil, linkCursor, "")
	assert.Len(t, items, testPageSize)
}

func TestFetchAll_FailedPageSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := requestedPage(r)
		if page == 3 {
			// Client errors are not retried, so the page fails fast.
			w.WriteHeader(http.StatusForbidden)
			return
		}
		body := map[string]interface{}{
			"issues": pageItems(page),
			"pagination": map[string]interface{}{
				"pages": testPages,
			},
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	generic := newGeneric("test", server.URL, "", logger.NewNoopLogger())
	defer generic.session.close()

	items := generic.fetchAll(context.Background(), server.URL+"/issues", nil, bodyCursor, "issues")
	assert.Len(t, items, (testPages-1)*testPageSize)
}

func TestParseLinkHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		next   string
		last   int
	}{
		{
			name: "next and last",
			header: `<https://example.com/items?page=2>; rel="next", ` +
				`<https://example.com/items?page=7>; rel="last"`,
			next: "https://example.com/items?page=2",
			last: 7,
		},
		{
			name:   "no header",
			header: "",
			next:   "",
			last:   0,
		},
		{
			name:   "only prev",
			header: `<https://example.com/items?page=1>; rel="prev"`,
			next:   "",
			last:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, last := parseLinkHeader(tt.header)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.last, last)
		})
	}
}
