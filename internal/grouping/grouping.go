// Package grouping classifies tabs into named groups: a keyword category
// when the URL or title matches one, otherwise the tab's host name.
package grouping

import (
	"net/url"
	"sort"
	"strings"

	"github.com/tonimelisma/tabwarden/internal/lifecycle"
)

// Mode selects how tabs are grouped.
type Mode string

// Grouping modes. ModeSmart tries keyword categories first and falls back
// to the domain; ModeDomain always uses the domain.
const (
	ModeSmart  Mode = "smart"
	ModeDomain Mode = "domain"
)

// Category is a named keyword set. A tab matches when any keyword occurs in
// its lower-cased URL or title.
type Category struct {
	Name     string
	Keywords []string
}

// DefaultCategories returns the built-in categories in match order.
func DefaultCategories() []Category {
	return []Category{
		{Name: "News", Keywords: []string{"news", "article", "blog", "medium", "post", "press"}},
		{Name: "Recipes", Keywords: []string{"recipe", "cook", "food", "cuisine", "dish", "cooking"}},
		{Name: "Videos", Keywords: []string{"video", "youtube", "vimeo", "dailymotion"}},
		{Name: "Shopping", Keywords: []string{"shop", "store", "sale", "product", "amazon", "ebay", "mall"}},
		{Name: "Social", Keywords: []string{"facebook", "twitter", "instagram", "reddit", "social", "tiktok"}},
		{Name: "Academic", Keywords: []string{"scholar", "research", "academic", "university", ".edu"}},
		{Name: "Entertainment", Keywords: []string{"netflix", "hulu", "imdb", "movie", "tv", "streaming"}},
	}
}

// Classifier assigns group names to tabs.
type Classifier struct {
	Mode       Mode
	Categories []Category
}

// NewClassifier returns a classifier for mode using the default categories.
// Unknown modes behave like ModeSmart.
func NewClassifier(mode Mode) *Classifier {
	return &Classifier{Mode: mode, Categories: DefaultCategories()}
}

// Category returns the first category matching the tab, or "".
func (c *Classifier) Category(rawURL, title string) string {
	if rawURL == "" {
		return ""
	}

	u := strings.ToLower(rawURL)
	t := strings.ToLower(title)

	for _, cat := range c.Categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(u, kw) || strings.Contains(t, kw) {
				return cat.Name
			}
		}
	}

	return ""
}

// GroupName returns the tab's group: its category in smart mode, otherwise
// (or when nothing matches) its domain. Returns "" for tabs without a
// parseable host.
func (c *Classifier) GroupName(rawURL, title string) string {
	if c.Mode != ModeDomain {
		if name := c.Category(rawURL, title); name != "" {
			return name
		}
	}

	return Domain(rawURL)
}

// Domain returns the lower-cased host name of rawURL, or "".
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Hostname())
}

// Group is a named set of tabs.
type Group struct {
	Name string
	Tabs []lifecycle.Tab
}

// Group partitions tabs by group name. Groups are sorted by name and keep
// the input order of their tabs. Tabs without a group are dropped.
func (c *Classifier) Group(tabs []lifecycle.Tab) []Group {
	byName := make(map[string]*Group)

	var names []string

	for _, t := range tabs {
		name := c.GroupName(t.URL, t.Title)
		if name == "" {
			continue
		}

		g, ok := byName[name]
		if !ok {
			g = &Group{Name: name}
			byName[name] = g
			names = append(names, name)
		}

		g.Tabs = append(g.Tabs, t)
	}

	sort.Strings(names)

	out := make([]Group, 0, len(names))
	for _, n := range names {
		out = append(out, *byName[n])
	}

	return out
}

// Select returns the tabs belonging to the named group. Names compare
// case-insensitively so "recipes" finds the Recipes category.
func (c *Classifier) Select(tabs []lifecycle.Tab, name string) []lifecycle.Tab {
	var out []lifecycle.Tab

	for _, t := range tabs {
		if strings.EqualFold(c.GroupName(t.URL, t.Title), name) {
			out = append(out, t)
		}
	}

	return out
}
