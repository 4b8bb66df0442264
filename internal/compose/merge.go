package compose

import (
	"fmt"
	"strings"
)

// MergeTypeError is returned when two layers carry incompatible value shapes
// (scalar vs sequence vs mapping) under the same key.
type MergeTypeError struct {
	Key    string
	Target any
	Source any
}

func (e *MergeTypeError) Error() string {
	return fmt.Sprintf("cannot merge key %q: incompatible types %T and %T", e.Key, e.Target, e.Source)
}

// replaceKeys are always fully replaced by the later layer, never merged,
// regardless of shape.
var replaceKeys = map[string]bool{
	"command":    true,
	"entrypoint": true,
}

// Merge folds each source into target in order. Documents are expected to be
// normalized before merging.
func Merge(target map[string]any, sources ...map[string]any) error {
	for _, source := range sources {
		if err := mergeOne(target, source); err != nil {
			return err
		}
	}
	return nil
}

// mergeOne updates target from source recursively:
//
//   - keys absent in target are copied (shallow copy for collections)
//   - two sequences are appended, except "volumes" where entries sharing a
//     mount target are deduplicated so the later layer's mount wins
//   - two mappings recurse
//   - two scalars: source overwrites
//   - anything else is a MergeTypeError
func mergeOne(target, source map[string]any) error {
	for key, incoming := range source {
		current, exists := target[key]
		if !exists || replaceKeys[key] {
			target[key] = cloneValue(incoming)
			continue
		}

		currentMap, currentIsMap := current.(map[string]any)
		incomingMap, incomingIsMap := incoming.(map[string]any)
		currentSeq, currentIsSeq := current.([]any)
		incomingSeq, incomingIsSeq := incoming.([]any)

		switch {
		case currentIsMap && incomingIsMap:
			if err := mergeOne(currentMap, incomingMap); err != nil {
				return err
			}
		case currentIsSeq && incomingIsSeq:
			if key == "volumes" {
				target[key] = mergeVolumes(currentSeq, incomingSeq)
			} else {
				target[key] = append(currentSeq, incomingSeq...)
			}
		case currentIsMap || incomingIsMap || currentIsSeq || incomingIsSeq:
			return &MergeTypeError{Key: key, Target: current, Source: incoming}
		default:
			target[key] = incoming
		}
	}
	return nil
}

// mergeVolumes appends incoming volume entries, first removing any current
// entry whose mount-target segment matches an incoming one.
func mergeVolumes(current, incoming []any) []any {
	targets := make(map[string]bool)
	for _, item := range incoming {
		if s, ok := item.(string); ok && strings.Contains(s, ":") {
			targets[mountTargetSegment(s)] = true
		}
	}
	out := make([]any, 0, len(current)+len(incoming))
	for _, item := range current {
		if s, ok := item.(string); ok && strings.Contains(s, ":") && targets[mountTargetSegment(s)] {
			continue
		}
		out = append(out, item)
	}
	return append(out, incoming...)
}

func mountTargetSegment(short string) string {
	parts := strings.SplitN(short, ":", 3)
	return parts[1]
}
