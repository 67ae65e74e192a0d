package models

// Page is one slice of a paginated post listing.
type Page struct {
	Number   int
	NumPages int
	Count    int
	Posts    []PostWithAuthor
}

func (p *Page) HasPrevious() bool { return p.Number > 1 }

func (p *Page) HasNext() bool { return p.Number < p.NumPages }

func (p *Page) PreviousNumber() int { return p.Number - 1 }

func (p *Page) NextNumber() int { return p.Number + 1 }
