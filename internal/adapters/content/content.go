// Package content loads the static site copy and markdown pages embedded in the binary.
package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

//go:embed site.yaml pages/*.md
var embedded embed.FS

// ErrPageNotFound is returned for an unknown page slug.
var ErrPageNotFound = errors.New("page not found")

// NavItem is one entry of the header navigation.
type NavItem struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
	Icon string `yaml:"icon"`
}

// Stat is a headline number on the home page.
type Stat struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
	Icon  string `yaml:"icon"`
}

// Feature is a service card on the home page.
type Feature struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Hero is the home page banner.
type Hero struct {
	Title     string `yaml:"title"`
	Subtitle  string `yaml:"subtitle"`
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}

// CTA is the closing call to action on the home page.
type CTA struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Button   string `yaml:"button"`
}

type pageRef struct {
	Slug  string `yaml:"slug"`
	Title string `yaml:"title"`
	File  string `yaml:"file"`
}

// Site is the parsed site.yaml.
type Site struct {
	Name             string    `yaml:"name"`
	Footer           string    `yaml:"footer"`
	Nav              []NavItem `yaml:"nav"`
	Hero             Hero      `yaml:"hero"`
	Stats            []Stat    `yaml:"stats"`
	FeaturesTitle    string    `yaml:"features_title"`
	FeaturesSubtitle string    `yaml:"features_subtitle"`
	Features         []Feature `yaml:"features"`
	CTA              CTA       `yaml:"cta"`
	Privacy          []string  `yaml:"privacy"`
	Pages            []pageRef `yaml:"pages"`
}

// Page is a rendered markdown page.
type Page struct {
	Slug  string
	Title string
	Body  template.HTML
}

// Content holds the site copy and pre-rendered pages.
type Content struct {
	Site  Site
	pages map[string]Page
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

// RenderMarkdown converts markdown to HTML. Raw HTML in the input is not passed through.
func RenderMarkdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Load parses the embedded site content.
func Load() (*Content, error) {
	return LoadFS(embedded)
}

// LoadFS parses site.yaml and the markdown files it names from fsys.
// PRE: fsys holds site.yaml and a pages/ directory
// POST: Every page listed in site.yaml is rendered, or an error names the first failure
func LoadFS(fsys fs.FS) (*Content, error) {
	raw, err := fs.ReadFile(fsys, "site.yaml")
	if err != nil {
		return nil, fmt.Errorf("read site.yaml: %w", err)
	}
	var site Site
	if err := yaml.Unmarshal(raw, &site); err != nil {
		return nil, fmt.Errorf("parse site.yaml: %w", err)
	}
	c := &Content{Site: site, pages: make(map[string]Page, len(site.Pages))}
	for _, ref := range site.Pages {
		body, err := fs.ReadFile(fsys, path.Join("pages", ref.File))
		if err != nil {
			return nil, fmt.Errorf("read page %s: %w", ref.Slug, err)
		}
		html, err := RenderMarkdown(body)
		if err != nil {
			return nil, fmt.Errorf("render page %s: %w", ref.Slug, err)
		}
		c.pages[ref.Slug] = Page{Slug: ref.Slug, Title: ref.Title, Body: html}
	}
	return c, nil
}

// Page returns the rendered page for slug.
func (c *Content) Page(slug string) (Page, error) {
	p, ok := c.pages[slug]
	if !ok {
		return Page{}, ErrPageNotFound
	}
	return p, nil
}

// MustLoad is Load for package initialisation; the embedded files are part of the build.
func MustLoad() *Content {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}
