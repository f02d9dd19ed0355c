package domain

type Resource struct {
	ID          string
	Name        string
	Description string
	Thread      string
	OwnerID     string
	TeamID      *string
	Price       int64
	HasIcon     bool
	Downloads   int64
}

func (r *Resource) IsFree() bool {
	return r.Price == 0
}

// CheckPurchasable returns ErrInvalidResource for a negative price and
// ErrFreeResource for a free one.
func (r *Resource) CheckPurchasable() error {
	if r.Price < 0 {
		return ErrInvalidResource
	}
	if r.IsFree() {
		return ErrFreeResource
	}
	return nil
}

// ResourceUpdate is a partial patch; nil fields are left unchanged.
type ResourceUpdate struct {
	Name        *string
	Description *string
	Thread      *string
}

func (u ResourceUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Thread == nil
}

func (r *Resource) Apply(u ResourceUpdate) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Thread != nil {
		r.Thread = *u.Thread
	}
}
