// Package lumio fetches markdown exercise cards from external repositories
// and prepares them for display.
package lumio

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML header of a card. Difficulty keeps whatever the
// author wrote, a number or a label such as "medium".
type Frontmatter struct {
	Title      string   `json:"title,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Difficulty any      `json:"difficulty,omitempty"`
	Language   string   `json:"language,omitempty"`
}

// Card is a parsed card ready for the client.
type Card struct {
	Frontmatter Frontmatter `json:"frontmatter"`
	Content     string      `json:"content"`
	BaseURL     string      `json:"baseUrl"`
}

var frontmatterBlock = regexp.MustCompile(`^---\s*\n([\s\S]*?)\n---\s*\n`)

// ParseFrontmatter splits the YAML header from the markdown body. Without a
// header, or when the header is not valid YAML, the front matter is empty and
// the markdown is returned untouched. A header that parses always comes off
// the body; known fields are read leniently and the rest is ignored.
func ParseFrontmatter(markdown string) (Frontmatter, string) {
	m := frontmatterBlock.FindStringSubmatchIndex(markdown)
	if m == nil {
		return Frontmatter{}, markdown
	}
	var raw any
	if err := yaml.Unmarshal([]byte(markdown[m[2]:m[3]]), &raw); err != nil {
		return Frontmatter{}, markdown
	}
	fields, _ := raw.(map[string]any)
	fm := Frontmatter{
		Title:      scalarString(fields["title"]),
		Tags:       stringList(fields["tags"]),
		Difficulty: fields["difficulty"],
		Language:   scalarString(fields["language"]),
	}
	return fm, markdown[m[1]:]
}

func scalarString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, float64, bool:
		return fmt.Sprint(v)
	}
	return ""
}

// stringList reads a YAML list of scalars. A single scalar counts as a
// one-element list.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s := scalarString(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := scalarString(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BaseURL returns the directory of the card URL: scheme, host and path
// without the file name. It returns "" for an unparsable URL.
func BaseURL(cardURL string) string {
	u, err := url.Parse(cardURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	dir := u.EscapedPath()
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i]
	} else {
		dir = ""
	}
	return u.Scheme + "://" + u.Host + dir
}

var (
	markdownImage = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	githubRawRoot = regexp.MustCompile(`^(https://raw\.githubusercontent\.com/[^/]+/[^/]+/[^/]+)`)
)

// ResolveImagePaths rewrites relative markdown image links to absolute URLs.
// Root-relative paths ("/x") resolve against the repository root when the
// base is a raw GitHub URL, else against base. "./x" and bare relative paths
// resolve against base. http and https links are left alone.
func ResolveImagePaths(content, base string) string {
	if base == "" {
		return content
	}
	root := base
	if m := githubRawRoot.FindStringSubmatch(base); m != nil {
		root = m[1]
	}

	return markdownImage.ReplaceAllStringFunc(content, func(link string) string {
		m := markdownImage.FindStringSubmatch(link)
		alt, path := m[1], m[2]
		switch {
		case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
			return link
		case strings.HasPrefix(path, "/"):
			if len(path) == 1 {
				return link
			}
			return "![" + alt + "](" + root + "/" + path[1:] + ")"
		case strings.HasPrefix(path, "./") && len(path) > 2:
			return "![" + alt + "](" + base + "/" + path[2:] + ")"
		default:
			return "![" + alt + "](" + base + "/" + path + ")"
		}
	})
}
