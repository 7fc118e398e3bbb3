package books

import "github.com/pkg/errors"

type IDParam struct {
	ID int `param:"id" json:"-" validate:"gt=0"`
}

type CreateBookPayload struct {
	Title  string `json:"title" validate:"min=1,max=200" mod:"trim"`
	Author string `json:"author" validate:"min=1,max=200" mod:"trim"`
}

type UpdateBookPayload struct {
	ID     int     `param:"id" json:"-" validate:"gt=0"`
	Title  *string `json:"title,omitempty" validate:"omitnil,min=1,max=200" mod:"trim"`
	Author *string `json:"author,omitempty" validate:"omitnil,min=1,max=200" mod:"trim"`
	Read   *bool   `json:"read,omitempty"`
}

var errEmptyUpdate = errors.New("At least one field must be provided")

// Validate rejects a patch that doesn't touch any field.
func (p *UpdateBookPayload) Validate() error {
	if p.Title == nil && p.Author == nil && p.Read == nil {
		return errEmptyUpdate
	}
	return nil
}
