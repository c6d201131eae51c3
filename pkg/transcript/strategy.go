package transcript

import (
	"fmt"
	"strings"

	"github.com/entrhq/threadsweep/pkg/page"
)

// Candidate is a located message container before normalization.
type Candidate struct {
	Role    Role
	Content page.Element
}

// Strategy finds message containers using one structural convention.
// Strategies are independent: results from different strategies are never merged.
type Strategy interface {
	// Name returns the strategy's identifier for logging.
	Name() string

	// Candidates returns the containers this strategy recognizes, in document order.
	Candidates(doc page.Querier) ([]Candidate, error)
}

// Markers names the attributes chat pages use to tag messages.
type Markers struct {
	// RoleAttribute carries the author role, e.g. data-message-author-role="user".
	RoleAttribute string

	// ContentSelector selects the message body inside a container.
	ContentSelector string
}

// DefaultMarkers matches the ChatGPT web app.
var DefaultMarkers = Markers{
	RoleAttribute:   "data-message-author-role",
	ContentSelector: "[data-message-content]",
}

// preferredRoles is the order used when a container holds several markers.
var preferredRoles = []Role{RoleUser, RoleAssistant, RoleSystem}

// DefaultStrategies returns the built-in strategies in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewAttributeRoleStrategy(DefaultMarkers),
		NewTurnContainerStrategy("article", DefaultMarkers),
		NewClassHeuristicStrategy("group", DefaultMarkers),
	}
}

// AttributeRoleStrategy takes every element carrying the role attribute.
type AttributeRoleStrategy struct {
	markers Markers
}

// NewAttributeRoleStrategy creates the explicit-marker strategy.
func NewAttributeRoleStrategy(markers Markers) *AttributeRoleStrategy {
	return &AttributeRoleStrategy{markers: markers}
}

func (s *AttributeRoleStrategy) Name() string {
	return "AttributeRole"
}

func (s *AttributeRoleStrategy) Candidates(doc page.Querier) ([]Candidate, error) {
	elements, err := doc.QuerySelectorAll("[" + s.markers.RoleAttribute + "]")
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(elements))
	for _, el := range elements {
		value, err := el.Attribute(s.markers.RoleAttribute)
		if err != nil {
			value = ""
		}
		out = append(out, Candidate{
			Role:    roleFromMarker(value),
			Content: contentOf(el, s.markers),
		})
	}
	return out, nil
}

// TurnContainerStrategy takes per-turn wrappers (e.g. <article>) and infers
// the role from markers nested inside them.
type TurnContainerStrategy struct {
	selector string
	markers  Markers
}

// NewTurnContainerStrategy creates a strategy over elements matching selector.
func NewTurnContainerStrategy(selector string, markers Markers) *TurnContainerStrategy {
	return &TurnContainerStrategy{selector: selector, markers: markers}
}

func (s *TurnContainerStrategy) Name() string {
	return "TurnContainer"
}

func (s *TurnContainerStrategy) Candidates(doc page.Querier) ([]Candidate, error) {
	return containerCandidates(doc, s.selector, s.markers)
}

// ClassHeuristicStrategy takes elements whose class attribute contains a
// naming fragment such as "group".
type ClassHeuristicStrategy struct {
	fragment string
	markers  Markers
}

// NewClassHeuristicStrategy creates a strategy over [class*=fragment].
func NewClassHeuristicStrategy(fragment string, markers Markers) *ClassHeuristicStrategy {
	return &ClassHeuristicStrategy{fragment: fragment, markers: markers}
}

func (s *ClassHeuristicStrategy) Name() string {
	return "ClassHeuristic"
}

func (s *ClassHeuristicStrategy) Candidates(doc page.Querier) ([]Candidate, error) {
	return containerCandidates(doc, fmt.Sprintf(`[class*=%q]`, s.fragment), s.markers)
}

func containerCandidates(doc page.Querier, selector string, markers Markers) ([]Candidate, error) {
	containers, err := doc.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(containers))
	for _, c := range containers {
		out = append(out, Candidate{
			Role:    inferRole(c, markers),
			Content: contentOf(c, markers),
		})
	}
	return out, nil
}

// inferRole prefers user, then assistant, then system, then whatever marker
// comes first, then unknown.
func inferRole(container page.Element, markers Markers) Role {
	for _, role := range preferredRoles {
		el, err := container.QuerySelector(fmt.Sprintf(`[%s=%q]`, markers.RoleAttribute, string(role)))
		if err == nil && el != nil {
			return role
		}
	}
	el, err := container.QuerySelector("[" + markers.RoleAttribute + "]")
	if err != nil || el == nil {
		return RoleUnknown
	}
	value, err := el.Attribute(markers.RoleAttribute)
	if err != nil {
		return RoleUnknown
	}
	return roleFromMarker(value)
}

func roleFromMarker(value string) Role {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return RoleUnknown
	}
	return Role(value)
}

func contentOf(el page.Element, markers Markers) page.Element {
	content, err := el.QuerySelector(markers.ContentSelector)
	if err != nil || content == nil {
		return el
	}
	return content
}
