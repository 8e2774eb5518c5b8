package storefront

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Category is a navigable product category shown in the storefront.
type Category struct {
	Slug  string `yaml:"slug" json:"slug"`
	Title string `yaml:"title" json:"title"`
	Image string `yaml:"image" json:"image,omitempty"`
}

// Collection is a curated set of products surfaced on the landing page.
type Collection struct {
	Name     string   `yaml:"name" json:"name"`
	Title    string   `yaml:"title" json:"title"`
	Products []string `yaml:"products" json:"products"`
}

// profileConfig is the YAML document shape.
type profileConfig struct {
	Storefront struct {
		Categories            []Category   `yaml:"categories"`
		Collections           []Collection `yaml:"collections"`
		FreeShippingThreshold float64      `yaml:"free-shipping-threshold"`
	} `yaml:"storefront"`
}

// Profile holds the curated catalog metadata for the storefront. Once
// created, Profile is immutable.
type Profile struct {
	categories            []Category
	collections           map[string]Collection
	freeShippingThreshold float64
	digest                string
}

// NewProfile creates an immutable Profile. The categories slice and
// collections map are copied.
func NewProfile(categories []Category, collections []Collection, freeShippingThreshold float64, digest string) Profile {
	collectionsCopy := make(map[string]Collection, len(collections))
	for _, c := range collections {
		collectionsCopy[c.Name] = c
	}

	return Profile{
		categories:            slices.Clone(categories),
		collections:           collectionsCopy,
		freeShippingThreshold: freeShippingThreshold,
		digest:                digest,
	}
}

// Categories returns the navigable categories in configured order.
func (p Profile) Categories() []Category {
	return slices.Clone(p.categories)
}

// Collection retrieves a curated collection by name.
func (p Profile) Collection(name string) (Collection, bool) {
	c, found := p.collections[name]
	return c, found
}

// Collections returns all curated collections.
func (p Profile) Collections() []Collection {
	all := make([]Collection, 0, len(p.collections))
	for _, c := range p.collections {
		all = append(all, c)
	}
	slices.SortFunc(all, func(a, b Collection) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return all
}

// FreeShippingThreshold returns the order subtotal above which shipping is
// free. Falls back to 100 when not configured.
func (p Profile) FreeShippingThreshold() float64 {
	if p.freeShippingThreshold <= 0 {
		return 100
	}
	return p.freeShippingThreshold
}

// Digest returns the content digest of the profile document.
func (p Profile) Digest() string {
	return p.digest
}

// IsLoaded returns true if a profile document has been successfully loaded.
func (p Profile) IsLoaded() bool {
	return len(p.digest) > 0
}

// LoadProfile reads and parses the profile document at the given path.
func LoadProfile(path string) (Profile, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("storefront profile load failed from %s: %w", path, err)
	}

	return ParseProfile(doc)
}

// ParseProfile parses a profile document, validating its contents. The digest
// of the raw document is recorded so unchanged reloads can be detected.
func ParseProfile(doc []byte) (Profile, error) {
	var config profileConfig
	if err := yaml.Unmarshal(doc, &config); err != nil {
		return Profile{}, fmt.Errorf("parsing storefront profile: %w", err)
	}

	if err := validate(config); err != nil {
		return Profile{}, err
	}

	hash := sha256.Sum256(doc)
	digest := hex.EncodeToString(hash[:])

	sf := config.Storefront
	return NewProfile(sf.Categories, sf.Collections, sf.FreeShippingThreshold, digest), nil
}

func validate(config profileConfig) error {
	seen := make(map[string]struct{})
	for _, c := range config.Storefront.Categories {
		if c.Slug == "" {
			return fmt.Errorf("storefront profile: category with empty slug")
		}
		if _, dup := seen[c.Slug]; dup {
			return fmt.Errorf("storefront profile: duplicate category slug %q", c.Slug)
		}
		seen[c.Slug] = struct{}{}
	}

	names := make(map[string]struct{})
	for _, c := range config.Storefront.Collections {
		if c.Name == "" {
			return fmt.Errorf("storefront profile: collection with empty name")
		}
		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("storefront profile: duplicate collection name %q", c.Name)
		}
		names[c.Name] = struct{}{}
	}

	return nil
}
