package notifications

// ValidateListQuery clamps paging into the accepted range.
func ValidateListQuery(query *ListQuery) {
	query.Normalize()
}
