package infobot

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed docsets.yaml
var defaultDocSetsYAML []byte

var ErrUnknownDocSet = errors.New("unknown documentation set")

// DocSet is a searchable documentation source.
type DocSet struct {
	ID      string `yaml:"id" json:"id" binding:"required"`
	Title   string `yaml:"title" json:"title"`
	BaseURL string `yaml:"base_url" json:"base_url" binding:"required,url"`
	Icon    string `yaml:"icon" json:"icon"`

	// AliasTable names an entry in DocSetConfig.AliasTables to apply to
	// queries against this set
	AliasTable string `yaml:"alias_table" json:"alias_table"`
}

// InventoryURL is the location of the set's objects.inv
func (d DocSet) InventoryURL() string {
	return joinDocURL(d.BaseURL, "objects.inv")
}

// AliasTable rewrites queries which exactly match (case-insensitive)
// one of Names to Prefix+name.
type AliasTable struct {
	Prefix string   `yaml:"prefix" json:"prefix" binding:"required"`
	Names  []string `yaml:"names" json:"names"`
}

func (a AliasTable) rewrite(query string) (string, bool) {
	q := strings.ToLower(query)
	for _, name := range a.Names {
		if q == name {
			return a.Prefix + name, true
		}
	}
	return query, false
}

// DocSetConfig is the full set of documentation sources, along with
// the rules used to normalize keys and queries.
type DocSetConfig struct {
	// Thumbnail shown on search result embeds
	Thumbnail string `yaml:"thumbnail" json:"thumbnail"`

	NamespaceStrip NamespaceStrip `yaml:"namespace_strip" json:"namespace_strip"`

	// QueryPrefixGroups are tried in order against each query. At most
	// one option per group is removed, and a removal is only kept if
	// something remains of the query afterward.
	QueryPrefixGroups [][]string `yaml:"query_prefix_groups" json:"query_prefix_groups"`

	AliasTables map[string]AliasTable `yaml:"alias_tables" json:"alias_tables" binding:"dive"`

	Sets []DocSet `yaml:"sets" json:"sets" binding:"required,min=1,dive"`
}

// Set returns the DocSet with the given ID
func (c *DocSetConfig) Set(id string) (DocSet, bool) {
	for _, s := range c.Sets {
		if s.ID == id {
			return s, true
		}
	}
	return DocSet{}, false
}

// IDs returns the configured set IDs, in configured order
func (c *DocSetConfig) IDs() []string {
	ids := make([]string, 0, len(c.Sets))
	for _, s := range c.Sets {
		ids = append(ids, s.ID)
	}
	return ids
}

// NormalizeQuery removes configured namespace prefixes from query, then
// applies the set's alias table, if it has one.
func (c *DocSetConfig) NormalizeQuery(set DocSet, query string) string {
	if stripped, ok := stripPrefixGroups(query, c.QueryPrefixGroups); ok {
		query = stripped
	}
	if set.AliasTable == "" {
		return query
	}
	table, ok := c.AliasTables[set.AliasTable]
	if !ok {
		return query
	}
	query, _ = table.rewrite(query)
	return query
}

// stripPrefixGroups removes at most one option from each group, from
// the front of s. Options are tried in order before trying not to strip
// anything for that group, and the first combination leaving a
// non-empty remainder wins.
func stripPrefixGroups(s string, groups [][]string) (string, bool) {
	if len(groups) == 0 {
		return s, s != ""
	}
	for _, opt := range groups[0] {
		if opt == "" || !strings.HasPrefix(s, opt) {
			continue
		}
		if rest, ok := stripPrefixGroups(s[len(opt):], groups[1:]); ok {
			return rest, true
		}
	}
	return stripPrefixGroups(s, groups[1:])
}

func (c *DocSetConfig) validate() error {
	if err := structValidator.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Sets))
	var errs []error
	for _, s := range c.Sets {
		if _, dup := seen[s.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate set id: %q", s.ID))
		}
		seen[s.ID] = struct{}{}
		if s.AliasTable != "" {
			if _, ok := c.AliasTables[s.AliasTable]; !ok {
				errs = append(
					errs,
					fmt.Errorf(
						"set %q: unknown alias table %q",
						s.ID,
						s.AliasTable,
					),
				)
			}
		}
	}
	return errors.Join(errs...)
}

// ParseDocSetConfig decodes and validates a YAML DocSetConfig
func ParseDocSetConfig(data []byte) (*DocSetConfig, error) {
	cfg := &DocSetConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing docsets: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid docsets: %w", err)
	}
	return cfg, nil
}

// LoadDocSetConfig reads the DocSetConfig at path, or returns the
// built-in configuration if path is empty.
func LoadDocSetConfig(path string) (*DocSetConfig, error) {
	if path == "" {
		return ParseDocSetConfig(defaultDocSetsYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading docsets file: %w", err)
	}
	return ParseDocSetConfig(data)
}
