package canvas

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// courseIDsFromHTML walks the anchor tags of a config page body and collects
// the course IDs of links pointing back at the provider host. Only bare course
// URLs count; links into a course (files, pages) are ignored.
func courseIDsFromHTML(body, host string) []int {
	if body == "" || host == "" {
		return nil
	}

	pattern := regexp.MustCompile(`^https://` + regexp.QuoteMeta(host) + `/courses/([0-9]+)$`)

	seen := make(map[int]bool)
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if m := pattern.FindStringSubmatch(attr.Val); m != nil {
					if id, err := strconv.Atoi(m[1]); err == nil {
						seen[id] = true
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if len(seen) == 0 {
		return nil
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
