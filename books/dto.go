package books

// CreateBookRequest carries a new listing. Genre and condition come from
// closed vocabularies so filter results stay consistent.
type CreateBookRequest struct {
	Title       Title   `json:"title"`
	Author      string  `json:"author" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Images      Images  `json:"images"`
	Genre       string  `json:"genre" validate:"required,oneof=fiction nonfiction mystery fantasy romance science history biography children other"`
	Condition   string  `json:"condition" validate:"required,oneof=new like-new good fair poor"`
	Category    string  `json:"category" validate:"required"`
}

// UpdateBookRequest carries a partial listing update. Pointer fields
// distinguish "leave as is" from "set to zero value".
type UpdateBookRequest struct {
	Title       *Title   `json:"title"`
	Author      *string  `json:"author"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Images      *Images  `json:"images"`
	Genre       *string  `json:"genre" validate:"omitempty,oneof=fiction nonfiction mystery fantasy romance science history biography children other"`
	Condition   *string  `json:"condition" validate:"omitempty,oneof=new like-new good fair poor"`
	Category    *string  `json:"category"`
}

// FilterRequest selects books by exact match on any subset of fields.
// Nil fields are unconstrained.
type FilterRequest struct {
	TitleMain *string  `json:"titleMain"`
	TitleSub  *string  `json:"titleSub"`
	Author    *string  `json:"author"`
	Price     *float64 `json:"price"`
	Genre     *string  `json:"genre"`
	Category  *string  `json:"category"`
}

// PageRequest is the pagination window for listing endpoints.
type PageRequest struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Normalize clamps the window to sane bounds.
func (p *PageRequest) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
}

// Offset converts the page number to a row offset.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}
