package tracker

import (
	"context"

	"github.com/google/uuid"

	"github.com/mind-engage/xapi-tracker/internal/settings"
)

// Registrations keeps one xAPI registration id per (survey, token) in the
// settings store at survey scope. Read-modify-write without locking.
type Registrations struct {
	Store settings.Store
	NewID func() string
}

func registrationKey(token string) string { return "registration:" + token }

func (r Registrations) Get(ctx context.Context, surveyID, token string) (string, bool, error) {
	v, ok, err := r.Store.Get(ctx, settings.ScopeSurvey, surveyID, registrationKey(token))
	if err != nil || !ok || v == "" {
		return "", false, err
	}
	return v, true, nil
}

// Ensure returns the existing registration or creates one. created reports
// whether this call created it.
func (r Registrations) Ensure(ctx context.Context, surveyID, token string) (id string, created bool, err error) {
	if id, ok, err := r.Get(ctx, surveyID, token); err != nil || ok {
		return id, false, err
	}
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	id = newID()
	if err := r.Store.Set(ctx, settings.ScopeSurvey, surveyID, registrationKey(token), id); err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (r Registrations) Clear(ctx context.Context, surveyID, token string) error {
	return r.Store.Delete(ctx, settings.ScopeSurvey, surveyID, registrationKey(token))
}
