package models

// Changes holds the result of comparing two snapshots.
// Both slices follow the order of the current snapshot.
type Changes struct {
	New     []Listing
	Updated []Listing
}

// Empty reports whether nothing new or updated was found
func (c Changes) Empty() bool {
	return len(c.New) == 0 && len(c.Updated) == 0
}

// Total returns the number of new and updated listings
func (c Changes) Total() int {
	return len(c.New) + len(c.Updated)
}
