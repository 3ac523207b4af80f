package index

import "github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"

// PostingList is the ordered, duplicate-free list of documents containing a
// term. It only grows.
type PostingList []ident.ID

// Add appends id unless it is already present and reports whether the list
// changed.
func (p *PostingList) Add(id ident.ID) bool {
	if ident.Contains(*p, id) {
		return false
	}
	*p = append(*p, id)
	return true
}

type TermEntry struct {
	Term     string
	Postings PostingList
}
