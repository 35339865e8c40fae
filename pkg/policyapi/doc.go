// Package policyapi defines the Control Plane wire format: the JSON
// payload a policy source serves, its Go unmarshaling shapes, and schema
// validation before the payload is handed to pkg/config for compilation.
package policyapi
