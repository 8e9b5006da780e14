package content

import (
	"fmt"
	"slices"
	"strings"

	"kulhadcafe.in/site/internal/nav"
)

// Validate reports every problem in s, each wrapped in ErrInvalid.
func Validate(s *Site) error {
	var problems []string
	if strings.TrimSpace(s.Name) == "" {
		problems = append(problems, "site name is required")
	}
	if err := nav.Validate(s.Nav); err != nil {
		problems = append(problems, err.Error())
	}
	for _, it := range s.Nav {
		if a := nav.Anchor(it.Href); a != "" && !slices.Contains(SectionIDs, a) {
			problems = append(problems, fmt.Sprintf("nav %q points at unknown section %q", it.Label, it.Href))
		}
	}
	for _, href := range s.Footer.QuickLinks {
		if !slices.Contains(SectionIDs, nav.Anchor(href)) {
			problems = append(problems, fmt.Sprintf("footer link %q points at unknown section", href))
		}
	}
	for i, img := range s.Gallery.Images {
		if img.Src == "" {
			problems = append(problems, fmt.Sprintf("gallery image %d has no src", i))
		}
		if !slices.Contains(s.Gallery.Categories, img.Category) {
			problems = append(problems, fmt.Sprintf("gallery image %q has unknown category %q", img.Alt, img.Category))
		}
	}
	for i, m := range s.Franchise.Models {
		if strings.TrimSpace(m.Name) == "" {
			problems = append(problems, fmt.Sprintf("franchise model %d has no name", i))
		}
		if m.Investment < 0 {
			problems = append(problems, fmt.Sprintf("franchise model %q has a negative investment", m.Name))
		}
	}
	for i, f := range s.Founders.People {
		if strings.TrimSpace(f.Name) == "" {
			problems = append(problems, fmt.Sprintf("founder %d has no name", i))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}
