package tracker

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/xapi-tracker/internal/auth"
	"github.com/mind-engage/xapi-tracker/internal/delivery"
	"github.com/mind-engage/xapi-tracker/internal/remotecontrol"
	"github.com/mind-engage/xapi-tracker/internal/responses"
	"github.com/mind-engage/xapi-tracker/internal/scope"
	"github.com/mind-engage/xapi-tracker/internal/settings"
	"github.com/mind-engage/xapi-tracker/internal/webhook"
	"github.com/mind-engage/xapi-tracker/internal/xapi"
)

// ResponseStore reads raw response rows; *responses.Repository implements it.
type ResponseStore interface {
	LatestByToken(ctx context.Context, surveyID, token string) (responses.Row, error)
	ByID(ctx context.Context, surveyID string, id int64) (responses.Row, error)
	ByToken(ctx context.Context, surveyID, token string) ([]responses.Row, error)
}

// Remote is a remote-control client bound to one base URL.
type Remote interface {
	responses.Source
	WithSession(ctx context.Context, username, password string, fn func(key string) error) error
}

type Clock func() time.Time

// Engine handles one event at a time to completion. It keeps no state
// between dispatches beyond what lives in the settings store.
type Engine struct {
	Settings  *settings.Resolver
	Responses ResponseStore // nil: no response data available
	Remote    func(url string) Remote
	Delivery  *delivery.Client
	TokenHTTP *http.Client
	Now       Clock
	NewID     func() string
	Log       logrus.FieldLogger
}

func NewEngine(res *settings.Resolver, rows ResponseStore, d *delivery.Client, log logrus.FieldLogger) *Engine {
	e := &Engine{
		Settings:  res,
		Responses: rows,
		Delivery:  d,
		Now:       time.Now,
		NewID:     uuid.NewString,
		Log:       log,
	}
	if d != nil && d.HTTP != nil {
		e.TokenHTTP = d.HTTP.StandardClient()
	}
	e.Remote = func(url string) Remote {
		return remotecontrol.New(url, d.HTTP, log)
	}
	return e
}

// errSkip marks a dispatch that ends without delivery.
type errSkip string

func (e errSkip) Error() string { return string(e) }

// dispatch is the per-event working set, dropped when Handle returns.
type dispatch struct {
	ev   Event
	opts settings.Options
	now  time.Time
	log  logrus.FieldLogger
}

// Handle runs the pipeline for ev: scope gate, settings, payload, delivery.
// Every failure is logged and reported in the Outcome; none is returned.
func (e *Engine) Handle(ctx context.Context, ev Event) Outcome {
	start := e.Now()
	out := Outcome{Kind: ev.Kind, SurveyID: ev.SurveyID}
	log := e.Log.WithFields(logrus.Fields{"survey_id": ev.SurveyID, "event": string(ev.Kind)})

	if err := ev.Validate(); err != nil {
		log.WithError(err).Warn("event rejected")
		out.Skipped = err.Error()
		return out
	}
	if !scope.InScope(ev.SurveyID, e.Settings.Global(ctx, settings.KeySurveyIDs)) {
		log.Debug("survey not in scope")
		out.Skipped = "survey not in scope"
		return out
	}

	d := &dispatch{ev: ev, opts: e.Settings.Options(ctx, ev.SurveyID), now: start, log: log}
	if d.ev.Lang == "" {
		d.ev.Lang = d.opts.DefaultLanguage
	}
	out.Target = string(d.opts.Target)

	var (
		req delivery.Request
		n   int
		err error
	)
	switch d.opts.Target {
	case settings.TargetLRS:
		req, n, err = e.lrsRequest(ctx, d)
	default:
		req, err = e.webhookRequest(ctx, d)
		n = 1
	}
	if err != nil {
		var skip errSkip
		if errors.As(err, &skip) {
			log.WithField("reason", string(skip)).Info("dispatch skipped")
		} else {
			log.WithError(err).Error("dispatch failed")
		}
		out.Skipped = err.Error()
		return out
	}

	req.Debug = d.opts.Debug
	res := e.Delivery.Post(ctx, req)
	out.Delivered = res.Sent && res.Status/100 == 2
	out.Status = res.Status
	out.Response = res.Body
	out.Statements = n

	if d.ev.Kind == SurveyCompleted && d.opts.Target == settings.TargetLRS {
		if err := e.registrations().Clear(ctx, d.ev.SurveyID, d.ev.Token); err != nil {
			log.WithError(err).Warn("clear registration")
		}
	}
	if d.opts.Debug {
		out.Trace = delivery.NewTrace(string(ev.Kind), ev.SurveyID, req.URL, res, e.Now().Sub(start)).HTML()
	}
	return out
}

func (e *Engine) registrations() Registrations {
	return Registrations{Store: e.Settings.Store, NewID: e.NewID}
}

func (e *Engine) webhookRequest(ctx context.Context, d *dispatch) (delivery.Request, error) {
	o := d.opts
	if o.WebhookURL == "" {
		return delivery.Request{}, errSkip("no webhook url configured")
	}
	details := webhook.NewDetails(d.ev.SurveyID, d.ev.Token, d.ev.Lang)
	switch d.ev.Kind {
	case SurveyCompleted:
		var row responses.Row
		if e.Responses != nil {
			id, _ := strconv.ParseInt(d.ev.ResponseID, 10, 64)
			r, err := e.Responses.ByID(ctx, d.ev.SurveyID, id)
			if err != nil {
				d.log.WithError(err).Warn("completed response not loaded")
			}
			row = r
		}
		details = details.WithResponse(d.ev.ResponseID, row)
	case ResponseSaved:
		if e.Responses != nil {
			rows, err := e.Responses.ByToken(ctx, d.ev.SurveyID, d.ev.Token)
			if err != nil {
				d.log.WithError(err).Warn("saved responses not loaded")
			}
			details = details.WithRows(rows)
		}
	}
	return delivery.Request{
		URL:     o.WebhookURL,
		Payload: webhook.New(webhookEventName(d.ev.Kind, o.HostEventNames), details, d.now),
		Signer:  auth.Signer{Secret: o.SigningSecret, Header: o.SignatureHeader, Prefix: o.SignaturePrefix},
	}, nil
}

func (e *Engine) lrsRequest(ctx context.Context, d *dispatch) (delivery.Request, int, error) {
	o := d.opts
	url := o.LRS.StatementsURL()
	if url == "" {
		return delivery.Request{}, 0, errSkip("no LRS endpoint configured")
	}
	if d.ev.Kind == SurveyCompleted {
		row := e.completedResponse(ctx, d)
		if d.ev.Token == "" {
			d.ev.Token = row["token"]
		}
	}
	if d.ev.Token == "" {
		return delivery.Request{}, 0, errSkip("no respondent token")
	}

	regs := e.registrations()
	b := xapi.Builder{HomePage: o.ActorHomepage, ActivityBase: o.ActivityBase, NewID: e.NewID}
	subj := xapi.Subject{SurveyID: d.ev.SurveyID, Token: d.ev.Token, Lang: d.ev.Lang}

	var batch xapi.Batch
	switch d.ev.Kind {
	case SurveyStarted:
		reg, created, err := regs.Ensure(ctx, d.ev.SurveyID, d.ev.Token)
		if err != nil {
			return delivery.Request{}, 0, err
		}
		if !created {
			return delivery.Request{}, 0, errSkip("already started")
		}
		subj.Registration = reg
		batch = b.Started(subj, d.now)

	case PageRendered, ResponseSaved:
		reg, ok, err := regs.Get(ctx, d.ev.SurveyID, d.ev.Token)
		if err != nil {
			d.log.WithError(err).Warn("registration lookup")
		} else if !ok {
			d.log.Info("no registration for respondent")
		}
		subj.Registration = reg
		page, err := e.flatten(ctx, d)
		if err != nil {
			return delivery.Request{}, 0, err
		}
		batch = b.Page(subj, page, d.now)
		if len(batch) == 0 {
			return delivery.Request{}, 0, errSkip("nothing to report")
		}

	case SurveyCompleted:
		reg, ok, err := regs.Get(ctx, d.ev.SurveyID, d.ev.Token)
		if err != nil || !ok {
			reg = e.NewID()
			d.log.WithField("registration", reg).Info("no registration for completed survey, using a fresh one")
		}
		subj.Registration = reg
		batch = b.Completed(subj, d.now)
	}

	return delivery.Request{URL: url, Payload: batch, Authorizer: e.authorizer(o, d.log)}, len(batch), nil
}

// completedResponse loads the completed response row. A missing row is
// logged and comes back nil; the statements do not depend on it.
func (e *Engine) completedResponse(ctx context.Context, d *dispatch) responses.Row {
	if e.Responses == nil {
		return nil
	}
	id, _ := strconv.ParseInt(d.ev.ResponseID, 10, 64)
	row, err := e.Responses.ByID(ctx, d.ev.SurveyID, id)
	if err != nil {
		d.log.WithError(err).WithField("response_id", d.ev.ResponseID).Warn("completed response not loaded")
		return nil
	}
	return row
}

// flatten opens a remote-control session for the page's answers. The
// session is released before flatten returns.
func (e *Engine) flatten(ctx context.Context, d *dispatch) (responses.Page, error) {
	rc := d.opts.RemoteControl
	if rc.URL == "" || e.Responses == nil {
		return responses.Page{}, errSkip("response data source not configured")
	}
	remote := e.Remote(rc.URL)
	f := responses.NewFlattener(e.Responses, remote, d.log)
	var page responses.Page
	err := remote.WithSession(ctx, rc.Username, rc.Password, func(key string) error {
		var err error
		page, err = f.Flatten(ctx, key, d.ev.SurveyID, d.ev.Token, d.ev.Lang, d.ev.LastPage)
		return err
	})
	return page, err
}

func (e *Engine) authorizer(o settings.Options, log logrus.FieldLogger) delivery.Authorizer {
	if o.LRS.AuthType == settings.AuthOAuth2 {
		tm := auth.NewTokenManager(e.Settings.Store, o, e.TokenHTTP, log)
		tm.Now = e.Now
		return tm
	}
	return auth.Basic{Username: o.LRS.Username, Password: o.LRS.Password}
}
