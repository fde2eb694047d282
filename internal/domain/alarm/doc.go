// Package alarm contains the domain types of the alarm receiver.
//
// A Notification is one alarm onset reported by the adapter, as the receiver
// stored it.
package alarm
