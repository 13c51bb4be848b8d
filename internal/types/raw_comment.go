package types

// RawComment is an unnormalized comment record as collected from a platform.
// Key names vary by origin (e.g. "text" vs "textDisplay"); any field may be missing.
type RawComment map[string]any
