// Package devicecal implements the on-device calendar provider. The device
// calendar store is a directory of .ics files maintained by the OS calendar
// subsystem; access permission is represented by a grant marker persisted
// next to the store. Recurring events are expanded within the requested
// window before normalization.
package devicecal
