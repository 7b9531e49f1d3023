package floorplan

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Waypoint is one authored route coordinate in authoring space.
type Waypoint = Vec2

// NavigationPath holds every authored route to one destination. Most
// destinations have a single route; some are reachable from several entry
// points and carry one list per route.
type NavigationPath [][]Waypoint

// UnmarshalYAML accepts either a single waypoint list or a list of lists.
func (p *NavigationPath) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("navigation path: expected sequence at line %d", node.Line)
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		var multi [][]Waypoint
		if err := node.Decode(&multi); err != nil {
			return fmt.Errorf("navigation path: %w", err)
		}
		*p = multi
		return nil
	}
	var single []Waypoint
	if err := node.Decode(&single); err != nil {
		return fmt.Errorf("navigation path: %w", err)
	}
	*p = NavigationPath{single}
	return nil
}

// UnmarshalJSON accepts either a single waypoint list or a list of lists.
func (p *NavigationPath) UnmarshalJSON(data []byte) error {
	var multi [][]Waypoint
	if err := json.Unmarshal(data, &multi); err == nil {
		*p = multi
		return nil
	}
	var single []Waypoint
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("navigation path: %w", err)
	}
	*p = NavigationPath{single}
	return nil
}
