package models

// UserProfile is the profile row from the external users table.
// Created by the registration flow; read-only here.
type UserProfile struct {
	ID               string `json:"user_id"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	PhoneNumber      string `json:"phone_number"`
	FreePassEligible bool   `json:"is_eligible_for_free_pass"`
}

// DisplayName returns the name used to prefill the checkout dialog.
func (p *UserProfile) DisplayName() string {
	if p == nil || p.FullName == "" {
		return "Guest"
	}
	return p.FullName
}

// Contact returns the phone number used to prefill the checkout dialog.
func (p *UserProfile) Contact() string {
	if p == nil {
		return ""
	}
	return p.PhoneNumber
}
