package beeq

import "strings"

// keySet holds the five Redis keys a queue operates on. Built once at queue
// construction so the hot paths never re-format key strings.
type keySet struct {
	jobs      string // hash: job id -> serialized {data, status}
	waiting   string // list: ids awaiting dispatch (LPUSH head, BRPOPLPUSH tail)
	active    string // list: ids checked out to a handler
	succeeded string // set: retained successful ids
	failed    string // set: retained failed ids
}

func newKeySet(prefix, name string) keySet {
	return keySet{
		jobs:      formatKey(prefix, name, "jobs"),
		waiting:   formatKey(prefix, name, "waiting"),
		active:    formatKey(prefix, name, "active"),
		succeeded: formatKey(prefix, name, "succeeded"),
		failed:    formatKey(prefix, name, "failed"),
	}
}

// formatKey ensures consistent key naming with the <prefix>:<queue>:<key> pattern.
func formatKey(parts ...string) string {
	return strings.Join(parts, ":")
}
