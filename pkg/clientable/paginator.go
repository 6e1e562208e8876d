package clientable

// Paginator is a page of resources together with its position in the full result set.
type Paginator struct {
	Items       *ResourceCollection `json:"items"        yaml:"items"`
	Total       int                 `json:"total"        yaml:"total"`
	PerPage     int                 `json:"per_page"     yaml:"per_page"`
	CurrentPage int                 `json:"current_page" yaml:"current_page"`
	Path        string              `json:"path"         yaml:"path"`
}

// LastPage returns the number of the last page, at least 1.
func (p *Paginator) LastPage() int {
	if p.PerPage <= 0 || p.Total <= 0 {
		return 1
	}

	last := (p.Total + p.PerPage - 1) / p.PerPage
	if last < 1 {
		return 1
	}

	return last
}

// HasMorePages reports whether pages follow the current one.
func (p *Paginator) HasMorePages() bool {
	return p.CurrentPage < p.LastPage()
}
