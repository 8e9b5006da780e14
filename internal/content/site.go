// Package content loads the copy, figures and media shown on the landing page
// from a YAML document, renders its markdown fields and validates it.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"os"

	"gopkg.in/yaml.v3"

	"kulhadcafe.in/site/internal/nav"
)

//go:embed site.yaml
var defaultSite []byte

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("content: invalid site")

// SectionIDs are the element ids of the rendered page sections, in page order.
var SectionIDs = []string{"home", "about", "founders", "timeline", "franchise", "gallery", "contact"}

// Site is the whole landing page.
type Site struct {
	Name        string     `yaml:"name"`
	Tagline     string     `yaml:"tagline"`
	Description string     `yaml:"description"`
	URL         string     `yaml:"url"`
	Logo        string     `yaml:"logo"`
	Founded     string     `yaml:"founded"`
	Nav         []nav.Item `yaml:"nav"`
	Hero        Hero       `yaml:"hero"`
	About       About      `yaml:"about"`
	Founders    Founders   `yaml:"founders"`
	Timeline    Timeline   `yaml:"timeline"`
	Franchise   Franchise  `yaml:"franchise"`
	Gallery     Gallery    `yaml:"gallery"`
	Contact     Contact    `yaml:"contact"`
	Footer      Footer     `yaml:"footer"`

	// Summary is plain text derived from the about body, used for meta tags.
	Summary string `yaml:"-"`
}

type Link struct {
	Label   string `yaml:"label"`
	Href    string `yaml:"href"`
	Primary bool   `yaml:"primary"`
}

type Image struct {
	Src string `yaml:"src"`
	Alt string `yaml:"alt"`
}

type Stat struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

type Badge struct {
	Title   string `yaml:"title"`
	Caption string `yaml:"caption"`
}

type Rating struct {
	Score    string `yaml:"score"`
	Caption  string `yaml:"caption"`
	Audience string `yaml:"audience"`
}

type Hero struct {
	Badge     string   `yaml:"badge"`
	Title     string   `yaml:"title"`
	Highlight string   `yaml:"highlight"`
	Lead      string   `yaml:"lead"`
	Points    []string `yaml:"points"`
	CTAs      []Link   `yaml:"ctas"`
	Image     Image    `yaml:"image"`
	Badges    []Badge  `yaml:"badges"`
	Rating    Rating   `yaml:"rating"`
}

type About struct {
	Heading     string `yaml:"heading"`
	Subheading  string `yaml:"subheading"`
	VisionTitle string `yaml:"vision_title"`
	Body        string `yaml:"body"`
	Image       Image  `yaml:"image"`
	Stats       []Stat `yaml:"stats"`

	BodyHTML template.HTML `yaml:"-"`
}

type Founder struct {
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
	Initial string `yaml:"initial"`
	Bio     string `yaml:"bio"`

	BioHTML template.HTML `yaml:"-"`
}

type Founders struct {
	Heading    string    `yaml:"heading"`
	Subheading string    `yaml:"subheading"`
	Badges     []string  `yaml:"badges"`
	Venture    string    `yaml:"venture"`
	People     []Founder `yaml:"people"`
}

type Phase struct {
	Title       string `yaml:"title"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description"`
}

type Timeline struct {
	Heading    string  `yaml:"heading"`
	Subheading string  `yaml:"subheading"`
	Phases     []Phase `yaml:"phases"`
}

// Model is a franchise package. A zero Investment means the price is quoted
// on request.
type Model struct {
	Name       string   `yaml:"name"`
	Investment int64    `yaml:"investment"`
	Tax        string   `yaml:"tax"`
	Space      string   `yaml:"space"`
	Popular    bool     `yaml:"popular"`
	Features   []string `yaml:"features"`
}

// CustomQuote reports whether the model has no fixed price.
func (m Model) CustomQuote() bool { return m.Investment == 0 }

type Franchise struct {
	Heading    string  `yaml:"heading"`
	Subheading string  `yaml:"subheading"`
	Highlights []Stat  `yaml:"highlights"`
	Models     []Model `yaml:"models"`
}

type GalleryImage struct {
	Src      string `yaml:"src"`
	Alt      string `yaml:"alt"`
	Category string `yaml:"category"`
}

type Gallery struct {
	Heading    string         `yaml:"heading"`
	Subheading string         `yaml:"subheading"`
	Categories []string       `yaml:"categories"`
	Images     []GalleryImage `yaml:"images"`
}

type Contact struct {
	Heading    string   `yaml:"heading"`
	Subheading string   `yaml:"subheading"`
	Phones     []string `yaml:"phones"`
	Email      string   `yaml:"email"`
	Address    string   `yaml:"address"`
}

type Footer struct {
	Blurb      string   `yaml:"blurb"`
	QuickLinks []string `yaml:"quick_links"`
}

// Parse decodes, renders and validates a site document.
func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("content: decode: %w", err)
	}
	if err := site.render(); err != nil {
		return nil, err
	}
	if err := Validate(&site); err != nil {
		return nil, err
	}
	return &site, nil
}

// Load reads and parses the site document at path.
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the embedded site document.
func Default() (*Site, error) {
	return Parse(defaultSite)
}

func (s *Site) render() error {
	var err error
	if s.About.BodyHTML, err = Markdown(s.About.Body); err != nil {
		return fmt.Errorf("content: about body: %w", err)
	}
	for i := range s.Founders.People {
		p := &s.Founders.People[i]
		if p.BioHTML, err = Markdown(p.Bio); err != nil {
			return fmt.Errorf("content: bio for %s: %w", p.Name, err)
		}
		if p.Initial == "" && p.Name != "" {
			p.Initial = initialOf(p.Name)
		}
	}
	s.Summary = Summary(string(s.About.BodyHTML), 160)
	if s.Summary == "" {
		s.Summary = s.Description
	}
	return nil
}

// initialOf skips honorifics such as "Mr." when picking an avatar letter.
func initialOf(name string) string {
	for _, word := range splitWords(name) {
		if len(word) > 0 && word[len(word)-1] == '.' {
			continue
		}
		return string([]rune(word)[:1])
	}
	return ""
}
