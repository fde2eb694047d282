package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
)

// Classes is a list of event class ids. In YAML every item may be either a
// numeric id or a taxonomy name such as human__step.
type Classes []int

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Classes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: target_classes must be a list (line %d)", ErrInvalid, node.Line)
	}

	result := make(Classes, 0, len(node.Content))

	for _, item := range node.Content {
		id, err := event.ParseClass(item.Value)
		if err != nil {
			return fmt.Errorf("%w: target_classes line %d: %w", ErrInvalid, item.Line, err)
		}

		result = append(result, id)
	}

	*c = result

	return nil
}

// Set returns the classes as a lookup set.
func (c Classes) Set() map[int]struct{} {
	set := make(map[int]struct{}, len(c))
	for _, id := range c {
		set[id] = struct{}{}
	}

	return set
}
