// Mock WordPress source for local development. Serves a paginated listing
// collection and its category taxonomy under the standard wp/v2 REST routes.
package main

import (
	_ "embed"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

//go:embed components.json
var componentData []byte

//go:embed categories.json
var categoryData []byte

type item struct {
	ID         int64           `json:"id"`
	Slug       string          `json:"slug"`
	Title      json.RawMessage `json:"title"`
	Categories []int64         `json:"categories"`
	Content    json.RawMessage `json:"content"`
}

func main() {
	var items []item
	if err := json.Unmarshal(componentData, &items); err != nil {
		log.Fatalf("[Mock WP] bad components.json: %v", err)
	}

	http.HandleFunc("/wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(categoryData); err != nil {
			log.Printf("[Mock WP] write error: %v", err)
		}
		log.Printf("[Mock WP] %s %s - 200 OK", r.Method, r.URL.Path)
	})

	// Any other wp/v2 collection serves the listing, so the same mock works
	// for kenta-blocks, lwp-block-patterns or plain posts.
	http.HandleFunc("/wp-json/wp/v2/", func(w http.ResponseWriter, r *http.Request) {
		// Simulate network latency (50-200ms)
		time.Sleep(time.Duration(50+time.Now().UnixNano()%150) * time.Millisecond)

		page := queryInt(r, "page", 1)
		perPage := queryInt(r, "per_page", 10)
		filtered := filterByCategories(items, r.URL.Query().Get("categories"))

		total := len(filtered)
		totalPages := (total + perPage - 1) / perPage

		start := (page - 1) * perPage
		if start > total {
			start = total
		}
		end := start + perPage
		if end > total {
			end = total
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-WP-Total", strconv.Itoa(total))
		w.Header().Set("X-WP-TotalPages", strconv.Itoa(totalPages))
		if err := json.NewEncoder(w).Encode(filtered[start:end]); err != nil {
			log.Printf("[Mock WP] write error: %v", err)
		}

		log.Printf("[Mock WP] %s %s?page=%d - 200 OK (%d of %d)", r.Method, r.URL.Path, page, end-start, total)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			log.Printf("[Mock WP] health write error: %v", err)
		}
	})

	log.Println("Mock WordPress source running on :8081")
	server := &http.Server{
		Addr:         ":8081",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}

	return v
}

func filterByCategories(items []item, raw string) []item {
	if raw == "" {
		return items
	}

	wanted := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			wanted[id] = true
		}
	}

	var out []item
	for _, it := range items {
		for _, c := range it.Categories {
			if wanted[c] {
				out = append(out, it)

				break
			}
		}
	}

	return out
}
