package config

import "fmt"

// FeatureMissingError reports that the configuration uses a subsystem the
// host does not support — WireGuard, BPF/XDP, or ethtool — raised at load
// time (spec.md §7 "FeatureMissing — ... raised at load").
type FeatureMissingError struct {
	Feature string
	Err     error
}

func (e *FeatureMissingError) Error() string {
	return fmt.Sprintf("feature %s unavailable on this host: %v", e.Feature, e.Err)
}

func (e *FeatureMissingError) Unwrap() error {
	return e.Err
}
