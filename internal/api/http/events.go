package http

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/xapi-tracker/internal/tracker"
)

// EventHandler accepts one lifecycle event and dispatches it synchronously.
// token and lang may also arrive as query parameters, as they do from the
// respondent's page request.
//
// POST /events {"event":"survey-completed","surveyId":"123456","responseId":"9"}
func EventHandler(e *tracker.Engine, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev tracker.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q := r.URL.Query()
		if ev.Token == "" {
			ev.Token = q.Get("token")
		}
		if ev.Lang == "" {
			ev.Lang = q.Get("lang")
		}
		if err := ev.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := e.Handle(r.Context(), ev)
		log.WithFields(logrus.Fields{
			"survey_id": ev.SurveyID,
			"event":     string(ev.Kind),
			"delivered": out.Delivered,
		}).Debug("event handled")
		writeJSON(w, http.StatusOK, out)
	}
}
