package model

import (
	"fmt"
	"time"
)

// Contact represents a person associated with the business. It is separate
// from any login identity of the admin surface.
type Contact struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	EmailAddress string    `json:"email_address"`
	DateAdded    time.Time `json:"date_added"`
}

func (c Contact) String() string {
	return fmt.Sprintf("%s, %s", c.LastName, c.FirstName)
}

// ContactPhone projects a contact onto its phone number. Used by list views
// that show the phone of a related contact.
func ContactPhone(c *Contact) string {
	if c == nil {
		return ""
	}
	return c.PhoneNumber
}
