package service

import (
	"fmt"

	"dialogos/model"
	"dialogos/platform"
)

var logger = platform.Logger

type UserService struct {
}

// ResolveOrCreate maps a verified identity onto its local user record,
// creating the record the first time the subject shows up. A storage failure
// here is an internal error, never a silent fall back to guest: persisting the
// exchange under no owner would misattribute it.
func (service *UserService) ResolveOrCreate(identity *Identity) (*model.User, error) {
	user, err := model.EnsureUser(identity.Subject, identity.Email, identity.DisplayName)
	if err != nil {
		logger.Errorf("Failed to resolve user record for subject %s: %s", identity.Subject, err)
		return nil, fmt.Errorf("%w: user directory failure", ErrInternal)
	}
	return user, nil
}

// Lookup returns the record for a subject without creating one, nil if the
// subject has never talked to us.
func (service *UserService) Lookup(subject string) (*model.User, error) {
	user, err := model.GetUserBySubject(subject)
	if err != nil {
		logger.Errorf("Failed to look up user record for subject %s: %s", subject, err)
		return nil, fmt.Errorf("%w: user directory failure", ErrInternal)
	}
	return user, nil
}
