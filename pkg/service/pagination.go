package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// cursor styles for paginated list endpoints.
const (
	// linkCursor follows the HTTP Link header (GitHub/Gitea style); the
	// response body is a JSON array.
	linkCursor = iota
	// bodyCursor follows a JSON pagination object with next/pages fields
	// (Pagure style); the items live under a named key.
	bodyCursor
)

// fetchAll walks every page of a paginated list endpoint. When the first
// response reveals the last page number, pages 2..last are fetched in
// parallel through a bounded worker pool; otherwise pages are walked
// sequentially. A failed page is logged and contributes nothing instead of
// aborting the pages already fetched.
func (g *Generic) fetchAll(ctx context.Context, rawURL string, params url.Values, style int, listKey string) []map[string]interface{} {
	if params == nil {
		params = url.Values{}
	}

	first, next, last, err := g.fetchPage(ctx, rawURL, params, style, listKey)
	if err != nil {
		g.log.Errorf("%s: %s: %v", g.name, rawURL, err)
		return nil
	}
	if last > 1 {
		return append(first, g.prefetchPages(ctx, rawURL, params, style, listKey, last)...)
	}

	// Total unknown: walk sequentially while a next link is given.
	items := first
	for next != "" {
		var page []map[string]interface{}
		page, next, _, err = g.fetchPage(ctx, next, nil, style, listKey)
		if err != nil {
			g.log.Errorf("%s: %s: %v", g.name, rawURL, err)
			break
		}
		items = append(items, page...)
	}
	return items
}

// prefetchPages fetches pages 2..last in parallel. The total is known, so
// every page is addressed by its page number.
func (g *Generic) prefetchPages(ctx context.Context, rawURL string, params url.Values, style int, listKey string, last int) []map[string]interface{} {
	pages := make([][]map[string]interface{}, last+1)

	var group errgroup.Group
	group.SetLimit(min(maxWorkers, last-1))
	for number := 2; number <= last; number++ {
		number := number
		group.Go(func() error {
			pageParams := url.Values{}
			for key, values := range params {
				pageParams[key] = values
			}
			pageParams.Set("page", strconv.Itoa(number))

			items, _, _, err := g.fetchPage(ctx, rawURL, pageParams, style, listKey)
			if err != nil {
				g.log.Errorf("%s: %s page %d: %v", g.name, rawURL, number, err)
				return nil
			}
			pages[number] = items
			return nil
		})
	}
	_ = group.Wait()

	var items []map[string]interface{}
	for _, page := range pages {
		items = append(items, page...)
	}
	return items
}

// fetchPage fetches one page and returns its items, the next-page URL (when
// advertised) and the last page number (0 when unknown).
func (g *Generic) fetchPage(ctx context.Context, rawURL string, params url.Values, style int, listKey string) ([]map[string]interface{}, string, int, error) {
	resp, err := g.session.do(ctx, http.MethodGet, rawURL, params)
	if err != nil {
		return nil, "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", 0, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}

	if style == linkCursor {
		var items []map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
			return nil, "", 0, fmt.Errorf("decoding page: %w", err)
		}
		next, last := parseLinkHeader(resp.Header.Get("Link"))
		return items, next, last, nil
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", 0, fmt.Errorf("decoding page: %w", err)
	}

	var items []map[string]interface{}
	if list, ok := body[listKey].([]interface{}); ok {
		for _, entry := range list {
			if item, ok := entry.(map[string]interface{}); ok {
				items = append(items, item)
			}
		}
	}
	next := jsonStr(body, "pagination", "next")
	last := int(jsonInt(body, "pagination", "pages"))
	return items, next, last, nil
}

var linkRegex = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="([^"]+)"`)

// parseLinkHeader extracts the rel="next" URL and the page number of the
// rel="last" URL from an HTTP Link header.
func parseLinkHeader(header string) (next string, last int) {
	for _, match := range linkRegex.FindAllStringSubmatch(header, -1) {
		switch match[2] {
		case "next":
			next = match[1]
		case "last":
			last = pageNumber(match[1])
		}
	}
	return next, last
}

// pageNumber returns the page query parameter of a pagination URL.
func pageNumber(rawURL string) int {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0
	}
	number, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return 0
	}
	return number
}
