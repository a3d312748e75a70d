// Package domain contains the core business entities and value objects of
// the gaze translation pipeline: gaze samples, fixation configuration,
// memory fragments, and their retention records. It is independent of any
// specific infrastructure or delivery mechanism.
package domain
