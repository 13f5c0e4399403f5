package data

// Shared list-query helpers for the admin repositories.

const (
	defaultListLimit = 50
	maxListLimit     = 500

	defaultBatchSize = 1000
)

// allowedSort returns column if it is in the allowed set, else the first
// allowed column. Sort columns are never taken from callers unvalidated.
func allowedSort(column string, allowed ...string) string {
	for _, a := range allowed {
		if column == a {
			return column
		}
	}
	return allowed[0]
}

// allowedDir normalizes a sort direction, defaulting to descending.
func allowedDir(dir string) string {
	if dir == "asc" || dir == "ASC" {
		return "ASC"
	}
	return "DESC"
}

func normalizeLimit(limit int) int {
	if limit < 1 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// normalizeBatchSize bounds the per-call row budget of cleanup statements.
func normalizeBatchSize(size int) int {
	if size < 1 {
		return defaultBatchSize
	}
	return size
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// toPointers converts a scanned value slice into the pointer slice the
// repository interfaces return.
func toPointers[T any](in []T) []*T {
	out := make([]*T, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}
