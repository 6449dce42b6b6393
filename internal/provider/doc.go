// Package provider defines the contract every calendar source adapter must
// satisfy and the error taxonomy adapters use to report failures across
// their boundary. Adapters never panic and never retry internally; retry
// policy belongs to the caller.
package provider
