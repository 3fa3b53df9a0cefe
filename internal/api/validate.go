package api

import (
	"errors"
	"net/mail"
	"net/url"
	"strings"
)

const (
	profilePathMarker = "linkedin.com/in/"
	minPasswordLength = 6
)

func validateRequest(req screenRequest) error {
	if err := validateProfileURL(req.LinkedInURL); err != nil {
		return err
	}
	if req.Credentials != nil {
		return validateCredentials(req.Credentials.Email, req.Credentials.Password)
	}
	return nil
}

func validateProfileURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("linkedinUrl is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("linkedinUrl must be a valid URL")
	}
	if !strings.Contains(raw, profilePathMarker) {
		return errors.New("linkedinUrl must be a LinkedIn profile URL")
	}
	return nil
}

func validateCredentials(email, password string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("credentials.email must be a valid email address")
	}
	if len(password) < minPasswordLength {
		return errors.New("credentials.password must be at least 6 characters")
	}
	return nil
}
