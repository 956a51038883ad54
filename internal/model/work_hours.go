package model

import "fmt"

// WorkHours is either an open interval within one day or the closed marker.
// The zero value is Closed.
type WorkHours struct {
	open   TimeOfDay
	close  TimeOfDay
	isOpen bool
}

// Closed returns the closed marker.
func Closed() WorkHours {
	return WorkHours{}
}

// FullDay returns the maximal open interval, 00:00:00-23:59:59.
func FullDay() WorkHours {
	return WorkHours{open: StartOfDay, close: EndOfDay, isOpen: true}
}

// NewWorkHours returns an open interval. open must be strictly before close.
func NewWorkHours(open, close TimeOfDay) (WorkHours, error) {
	if !open.Valid() || !close.Valid() {
		return WorkHours{}, fmt.Errorf("time of day out of range: %s-%s", open, close)
	}
	if close <= open {
		return WorkHours{}, fmt.Errorf("closing time %s must be after opening time %s", close, open)
	}
	return WorkHours{open: open, close: close, isOpen: true}, nil
}

// IsClosed reports whether w is the closed marker.
func (w WorkHours) IsClosed() bool {
	return !w.isOpen
}

// Bounds returns the interval. ok is false for Closed.
func (w WorkHours) Bounds() (open, close TimeOfDay, ok bool) {
	return w.open, w.close, w.isOpen
}

func (w WorkHours) String() string {
	if !w.isOpen {
		return "closed"
	}
	return w.open.String() + "-" + w.close.String()
}

// WorkHoursView is the JSON form of WorkHours.
type WorkHoursView struct {
	Closed bool   `json:"closed"`
	Open   string `json:"open,omitempty"`  // "09:00:00"
	Close  string `json:"close,omitempty"` // "18:00:00"
}

// View converts w to its JSON form.
func (w WorkHours) View() WorkHoursView {
	if !w.isOpen {
		return WorkHoursView{Closed: true}
	}
	return WorkHoursView{Open: w.open.String(), Close: w.close.String()}
}
