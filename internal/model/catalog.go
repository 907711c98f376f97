package model

import "strings"

// Rule allows documents whose type starts with TypePrefix.
// NamePredicate, when set, further restricts accepted documents by name.
type Rule struct {
	Service       string `db:"appname"`
	Component     string `db:"appcomponent"`
	TypePrefix    string `db:"modelertype"`
	NamePredicate string `db:"mtypename"`
}

// Matches reports whether the document type is covered by the rule
func (r Rule) Matches(docType string) bool {
	return strings.HasPrefix(docType, r.TypePrefix)
}

// Accepts reports whether the document name passes the rule's name predicate
func (r Rule) Accepts(name string) bool {
	return r.NamePredicate == "" || strings.HasPrefix(name, r.NamePredicate)
}

// Catalog maps service -> component -> rules
type Catalog map[string]map[string][]Rule

// NewCatalog groups rules by service and component
func NewCatalog(rules []Rule) Catalog {
	c := make(Catalog)
	for _, r := range rules {
		if c[r.Service] == nil {
			c[r.Service] = make(map[string][]Rule)
		}
		c[r.Service][r.Component] = append(c[r.Service][r.Component], r)
	}
	return c
}

// Rules returns the rules of a service component; nil if none
func (c Catalog) Rules(service, component string) []Rule {
	return c[service][component]
}

// Match returns the rules matching a document type
func Match(rules []Rule, docType string) []Rule {
	var matched []Rule
	for _, r := range rules {
		if r.Matches(docType) {
			matched = append(matched, r)
		}
	}
	return matched
}
