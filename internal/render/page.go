package render

import (
	"fmt"
	"strings"
)

// Page identifies one dashboard screen.
type Page int

const (
	// PageSystem shows CPU, memory, temperatures and network throughput.
	PageSystem Page = iota
	// PageStorage shows the root filesystem and the NAS mount.
	PageStorage
	// PageDocker shows container counts and the running container list.
	PageDocker

	pageCount
)

var pageNames = map[Page]string{
	PageSystem:  "system",
	PageStorage: "storage",
	PageDocker:  "docker",
}

var pageTitles = map[Page]string{
	PageSystem:  "Raspberry Pi",
	PageStorage: "Storage",
	PageDocker:  "Docker",
}

// String returns the page's configuration name.
func (p Page) String() string {
	if name, ok := pageNames[p]; ok {
		return name
	}
	return fmt.Sprintf("page(%d)", int(p))
}

// Title returns the header text for the page.
func (p Page) Title() string {
	if t, ok := pageTitles[p]; ok {
		return t
	}
	return p.String()
}

// ParsePage resolves a configuration name to a Page.
func ParsePage(name string) (Page, error) {
	for p, n := range pageNames {
		if n == strings.ToLower(strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown page %q (valid: %s)", name, strings.Join(PageNames(), ", "))
}

// AllPages returns every page in display order.
func AllPages() []Page {
	pages := make([]Page, 0, int(pageCount))
	for p := Page(0); p < pageCount; p++ {
		pages = append(pages, p)
	}
	return pages
}

// PageNames returns the configuration names in display order.
func PageNames() []string {
	names := make([]string, 0, int(pageCount))
	for _, p := range AllPages() {
		names = append(names, p.String())
	}
	return names
}
