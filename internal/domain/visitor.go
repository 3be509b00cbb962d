package domain

import "strings"

// VisitorInfo holds the contact details collected before a conversation starts.
type VisitorInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// IsZero returns true if nothing was collected.
func (v *VisitorInfo) IsZero() bool {
	return v == nil || (strings.TrimSpace(v.Name) == "" &&
		strings.TrimSpace(v.Email) == "" &&
		strings.TrimSpace(v.Phone) == "")
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (v VisitorInfo) Trimmed() VisitorInfo {
	return VisitorInfo{
		Name:  strings.TrimSpace(v.Name),
		Email: strings.TrimSpace(v.Email),
		Phone: strings.TrimSpace(v.Phone),
	}
}
