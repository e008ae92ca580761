package shared

// RecalcLockKey builds the redis key serializing profit recalculation runs.
func RecalcLockKey() string {
	return "gss:recalc:lock"
}
