package dom

import (
	"fmt"
	"strings"
)

// selector is a descendant chain of compound selectors, e.g.
// ".seconds [data-digit-ones]".
type selector []compound

// compound is a run of simple selectors applying to one element:
// tag, #id, .class, [attr] and [attr=value].
type compound struct {
	tag        string
	id         string
	classes    []string
	attributes []attributeMatch
}

type attributeMatch struct {
	name     string
	value    string
	hasValue bool
}

func parseSelector(s string) (selector, error) {

	parts := strings.Fields(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty selector")
	}

	result := make(selector, 0, len(parts))

	for _, part := range parts {

		c, err := parseCompound(part)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", s, err)
		}

		result = append(result, c)
	}

	return result, nil
}

func parseCompound(s string) (compound, error) {

	var c compound

	// leading tag name, if any
	end := strings.IndexAny(s, ".#[")
	if end == -1 {
		end = len(s)
	}
	c.tag = s[:end]
	s = s[end:]

	for len(s) > 0 {

		switch s[0] {

		case '.', '#':
			next := strings.IndexAny(s[1:], ".#[")
			if next == -1 {
				next = len(s) - 1
			}

			name := s[1 : next+1]
			if name == "" {
				return c, fmt.Errorf("missing name after %q", s[0])
			}

			if s[0] == '.' {
				c.classes = append(c.classes, name)
			} else {
				c.id = name
			}

			s = s[next+1:]

		case '[':
			closing := strings.IndexByte(s, ']')
			if closing == -1 {
				return c, fmt.Errorf("unterminated attribute selector")
			}

			c.attributes = append(c.attributes, parseAttributeMatch(s[1:closing]))
			s = s[closing+1:]

		default:
			return c, fmt.Errorf("unexpected %q", s[0])
		}
	}

	return c, nil
}

func parseAttributeMatch(s string) attributeMatch {

	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return attributeMatch{name: strings.TrimSpace(s)}
	}

	return attributeMatch{
		name:     strings.TrimSpace(name),
		value:    strings.Trim(strings.TrimSpace(value), `"'`),
		hasValue: true,
	}
}

func (c compound) matches(e *Element) bool {

	if c.tag != "" && c.tag != "*" && c.tag != e.tag {
		return false
	}

	if c.id != "" && c.id != e.ID() {
		return false
	}

	for _, class := range c.classes {
		if !e.HasClass(class) {
			return false
		}
	}

	for _, attribute := range c.attributes {

		value, ok := e.Attribute(attribute.name)
		if !ok {
			return false
		}

		if attribute.hasValue && value != attribute.value {
			return false
		}
	}

	return true
}

// matches reports whether e matches the selector with every ancestor part
// found strictly inside scope.
func (s selector) matches(e *Element, scope *Element) bool {

	last := len(s) - 1
	if !s[last].matches(e) {
		return false
	}

	i := last - 1
	for ancestor := e.parent; i >= 0 && ancestor != nil && ancestor != scope; ancestor = ancestor.parent {
		if s[i].matches(ancestor) {
			i--
		}
	}

	return i < 0
}
