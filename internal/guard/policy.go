package guard

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/daap14/console/internal/rbac"
)

// ErrPageNotFound is returned when a page name is not part of the policy.
var ErrPageNotFound = errors.New("page not found")

// Page is a navigable console page and the criteria guarding it.
type Page struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Criteria Criteria `json:"criteria"`
}

// Policy is the ordered set of console pages.
type Policy struct {
	Pages []Page `json:"pages"`
}

// DefaultPolicy returns the built-in page set.
func DefaultPolicy() *Policy {
	return &Policy{Pages: []Page{
		{Name: "dashboard", Path: "/", Title: "Dashboard"},
		{Name: "users", Path: "/users", Title: "Users", Criteria: Criteria{Permission: "users.read"}},
		{Name: "roles", Path: "/roles", Title: "Roles", Criteria: Criteria{Permission: "roles.read"}},
		{Name: "audit", Path: "/audit", Title: "Audit log", Criteria: Criteria{Permission: "audit.read"}},
		{Name: "settings", Path: "/settings", Title: "Settings", Criteria: Criteria{AnyRole: []string{"admin", "superadmin"}}},
	}}
}

// LoadPolicy reads a YAML page policy from path.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML page policy and validates it.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("decoding policy: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) validate() error {
	if len(p.Pages) == 0 {
		return errors.New("policy has no pages")
	}
	seen := make(map[string]bool, len(p.Pages))
	for i, page := range p.Pages {
		if strings.TrimSpace(page.Name) == "" {
			return fmt.Errorf("page %d: name is required", i)
		}
		if !strings.HasPrefix(page.Path, "/") {
			return fmt.Errorf("page %q: path must start with /", page.Name)
		}
		if seen[page.Name] {
			return fmt.Errorf("page %q: duplicate name", page.Name)
		}
		seen[page.Name] = true
	}
	return nil
}

// Page returns the page with the given name.
func (p *Policy) Page(name string) (Page, error) {
	for _, page := range p.Pages {
		if page.Name == name {
			return page, nil
		}
	}
	return Page{}, ErrPageNotFound
}

// VisibleLinks returns, in policy order, the pages the profile may navigate to.
func (p *Policy) VisibleLinks(profile *rbac.Profile) []Page {
	links := make([]Page, 0, len(p.Pages))
	for _, page := range p.Pages {
		if CanAccess(profile, page.Criteria) {
			links = append(links, page)
		}
	}
	return links
}
