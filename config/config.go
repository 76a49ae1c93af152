// Package config holds small, YAML/JSON-decodable configuration structs for
// the process tree engine, following the teacher repo's pattern: a struct
// with tags, a Default constructor, and a Merge method that overlays
// non-zero fields from a source onto the receiver. Node handlers and
// conditions are Go closures and are never represented here — only the
// numeric/string knobs that can reasonably be declared outside code.
package config

import "gopkg.in/yaml.v3"

// ThresholdMode breaks ties in a Parallel node when both the success and
// failure thresholds are simultaneously satisfied, or when neither is.
type ThresholdMode int

const (
	// SuccessPriority favours SUCCESS when both thresholds are met, or
	// when neither is met once all children have resolved.
	SuccessPriority ThresholdMode = iota
	// FailurePriority favours FAILURE in the same tie-break situations.
	FailurePriority
)

// UnmarshalYAML decodes the human-readable mode names into ThresholdMode.
func (m *ThresholdMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "", "success_priority":
		*m = SuccessPriority
	case "failure_priority":
		*m = FailurePriority
	default:
		return &UnknownThresholdModeError{Value: s}
	}
	return nil
}

// MarshalYAML renders ThresholdMode using the same names UnmarshalYAML accepts.
func (m ThresholdMode) MarshalYAML() (any, error) {
	switch m {
	case FailurePriority:
		return "failure_priority", nil
	default:
		return "success_priority", nil
	}
}

// UnknownThresholdModeError is returned when decoding an unrecognised
// threshold_mode value.
type UnknownThresholdModeError struct {
	Value string
}

func (e *UnknownThresholdModeError) Error() string {
	return "config: unknown threshold_mode " + e.Value
}

// ParallelConfig configures a Parallel node's aggregation thresholds.
//
// Example YAML:
//
//	num_required_to_succeed: 2
//	num_required_to_fail: 2
//	threshold_mode: success_priority
type ParallelConfig struct {
	// NumRequiredToSucceed is the count of SUCCESS children needed to
	// resolve SUCCESS. 0 means all eligible children must succeed.
	NumRequiredToSucceed int `yaml:"num_required_to_succeed" json:"num_required_to_succeed"`

	// NumRequiredToFail is the count of FAILURE children needed to
	// resolve FAILURE. 0 means any single failure fails the node.
	NumRequiredToFail int `yaml:"num_required_to_fail" json:"num_required_to_fail"`

	// ThresholdMode breaks ties; see ThresholdMode.
	ThresholdMode ThresholdMode `yaml:"threshold_mode" json:"threshold_mode"`
}

// DefaultParallelConfig returns the all-must-succeed, any-fails-it default.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		NumRequiredToSucceed: 0,
		NumRequiredToFail:    0,
		ThresholdMode:        SuccessPriority,
	}
}

// Merge applies non-zero values from source into c.
func (c *ParallelConfig) Merge(source *ParallelConfig) {
	if source.NumRequiredToSucceed > 0 {
		c.NumRequiredToSucceed = source.NumRequiredToSucceed
	}
	if source.NumRequiredToFail > 0 {
		c.NumRequiredToFail = source.NumRequiredToFail
	}
	if source.ThresholdMode != SuccessPriority {
		c.ThresholdMode = source.ThresholdMode
	}
}

// TargetBehaviour controls which per-target tree fragments a Manager merges
// into a requested root, when more than one target instance is supplied.
type TargetBehaviour int

const (
	// All merges every supplied target's per-instance entry, in order.
	All TargetBehaviour = iota
	// First merges only the first target that has a registered entry.
	First
	// None merges no per-target entries; only global and local roots apply.
	None
)

// ManagerConfig configures a Manager's default merge behaviour.
type ManagerConfig struct {
	// DefaultBehaviour is used by GetRoot calls that don't specify one.
	DefaultBehaviour TargetBehaviour `yaml:"default_behaviour" json:"default_behaviour"`

	// Observer names an observability.Observer registered by name.
	Observer string `yaml:"observer" json:"observer"`
}

// DefaultManagerConfig returns the package defaults: merge all targets,
// no-op observability.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultBehaviour: All,
		Observer:         "noop",
	}
}

// Merge applies non-zero values from source into c.
func (c *ManagerConfig) Merge(source *ManagerConfig) {
	if source.DefaultBehaviour != All {
		c.DefaultBehaviour = source.DefaultBehaviour
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
