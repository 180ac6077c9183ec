package handler

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/thehashton/alterun/internal/service"
)

// SeoHandler serves robots.txt and the sitemap built from entry slugs.
type SeoHandler struct {
	codex   *service.CodexService
	baseURL string
}

// NewSeoHandler creates a new SeoHandler. baseURL is the public origin,
// e.g. "https://alterun.example".
func NewSeoHandler(codex *service.CodexService, baseURL string) *SeoHandler {
	return &SeoHandler{codex: codex, baseURL: strings.TrimRight(baseURL, "/")}
}

// robotsHandler serves a static robots.txt file.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "Disallow: /admin/")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", h.baseURL)
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemapHandler generates and serves a dynamic sitemap.xml from entry slugs.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	// One page of MaxPageSize covers the whole set at hobby-content scale;
	// beyond that the sitemap just lists the first page worth of entries.
	page, err := h.codex.ListEntries(r.Context(), service.ListOptions{Page: 1, PageSize: service.MaxPageSize})
	if err != nil {
		http.Error(w, "Failed to retrieve entries for sitemap", http.StatusInternalServerError)
		return
	}

	sitemap := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, 0, len(page.Entries)+1),
	}
	sitemap.URLs = append(sitemap.URLs, sitemapURL{Loc: h.baseURL + "/codex"})
	for _, entry := range page.Entries {
		sitemap.URLs = append(sitemap.URLs, sitemapURL{
			Loc:     h.baseURL + "/codex/" + entry.Slug,
			LastMod: entry.UpdatedAt.Format(sitemapDateFormat),
		})
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(sitemap); err != nil {
		http.Error(w, "Failed to generate sitemap XML", http.StatusInternalServerError)
		return
	}
}
