package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/xapi-tracker/internal/auth"
	"github.com/mind-engage/xapi-tracker/internal/settings"
	"github.com/mind-engage/xapi-tracker/internal/tracker"
)

type settingsUpdateReq struct {
	SurveyID string            `json:"surveyId"`
	Settings map[string]string `json:"settings"`
}

// GET /admin/settings[?surveyId=123456]
func SettingsGetHandler(res *settings.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, res.Describe(r.Context(), r.URL.Query().Get("surveyId")))
	}
}

// credentialKeys invalidate the cached OAuth2 session when changed.
var credentialKeys = []string{
	settings.KeyLRSAuthType, settings.KeyLRSUsername, settings.KeyLRSPassword,
	settings.KeyOAuthClientID, settings.KeyOAuthTokenURL, settings.KeyOAuthLogoutURL,
}

// SettingsUpdateHandler applies a settings map at global or survey scope.
// When global OAuth2 credentials change, the old session is logged out and
// the token cache cleared.
//
// POST /admin/settings {"surveyId":"", "settings":{"target":"lrs"}}
func SettingsUpdateHandler(res *settings.Resolver, e *tracker.Engine, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingsUpdateReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Settings == nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		before := res.Options(ctx, "")

		err := res.Apply(ctx, req.SurveyID, req.Settings)
		switch {
		case errors.Is(err, settings.ErrUnknownKey), errors.Is(err, settings.ErrFixedKey),
			errors.Is(err, settings.ErrInvalidValue), errors.Is(err, settings.ErrNotSurvey):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			log.WithError(err).Error("apply settings")
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}

		if req.SurveyID == "" && touches(req.Settings, credentialKeys) {
			var hc *http.Client
			if e != nil {
				hc = e.TokenHTTP
			}
			if err := auth.NewTokenManager(res.Store, before, hc, log).Logout(ctx); err != nil {
				log.WithError(err).Warn("oauth2 logout after credential change")
			}
		}
		log.WithFields(logrus.Fields{"survey_id": req.SurveyID, "keys": len(req.Settings)}).Info("settings updated")
		writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	}
}

func touches(updates map[string]string, keys []string) bool {
	for _, k := range keys {
		if _, ok := updates[k]; ok {
			return true
		}
	}
	return false
}
