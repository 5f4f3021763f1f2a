package content

import "strings"

// Order selects how a post listing is sequenced. Listings arrive
// newest-first, so "recent" keeps the incoming order and "oldest" reverses
// it.
type Order string

const (
	OrderRecent Order = "recent"
	OrderOldest Order = "oldest"
)

// AllCategories is the category filter value that matches every post.
const AllCategories = "all"

// ListOptions are the client-controlled knobs of a post listing.
type ListOptions struct {
	Query    string
	Category string
	Sort     Order
}

// ApplyListOptions filters and orders a listing. It always returns a new
// slice and never mutates the input.
func ApplyListOptions(posts []PostView, opts ListOptions) []PostView {
	result := make([]PostView, 0, len(posts))

	query := strings.ToLower(strings.TrimSpace(opts.Query))
	for _, post := range posts {
		if query != "" && !matchesQuery(post, query) {
			continue
		}
		if !matchesCategory(post, opts.Category) {
			continue
		}
		result = append(result, post)
	}

	if opts.Sort == OrderOldest {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}

	return result
}

func matchesQuery(post PostView, query string) bool {
	return strings.Contains(strings.ToLower(post.Title), query) ||
		strings.Contains(strings.ToLower(post.Content), query)
}

func matchesCategory(post PostView, category string) bool {
	if category == "" || category == AllCategories {
		return true
	}
	return post.CategorySlug == category
}
