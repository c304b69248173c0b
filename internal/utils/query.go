package utils

// ToSkipAndLimit converts one-based page/size query values into cursor
// skip/limit, defaulting to the first page of ten.
func ToSkipAndLimit(page uint64, size uint64) (skip uint64, limit uint64) {
	if page == 0 {
		page = 1
	}

	if size == 0 {
		size = 10
	}

	skip = (page - 1) * size
	limit = size

	return
}
