package types

// Filter represents query parameters for filtering and pagination.
// Page is 1-indexed; Offset is derived from Page and Limit.
type Filter struct {
	Search string            `json:"search,omitempty"`
	Sort   map[string]string `json:"sort,omitempty"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Page   int               `json:"page"`
}

// Pagination represents pagination metadata.
type Pagination struct {
	TotalCount uint64 `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"total_pages"`
}

// TotalPages is ceil(total/limit); zero when limit is not positive.
func TotalPages(total uint64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + uint64(limit) - 1) / uint64(limit))
}
