// Package client assembles the capture, chat, and reveal subsystems into the
// interactive check-in application core.
package client

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theravid/theravid/internal/client/api"
	"github.com/theravid/theravid/internal/client/capture"
	"github.com/theravid/theravid/internal/client/chat"
	"github.com/theravid/theravid/internal/client/checkin"
	"github.com/theravid/theravid/internal/client/reveal"
	"github.com/theravid/theravid/internal/client/store"
	"github.com/theravid/theravid/internal/client/view"
	"github.com/theravid/theravid/internal/utils"
)

const tokenKey = "authToken"

// UI is the surface the core renders into.
type UI interface {
	Notify(msg string)
	ShowView(name string)
	ElapsedChanged(clock string)

	ChatView() chat.View
	ChatReplySlot() reveal.Target
	EmotionSlot() checkin.Slot
	CheckinReplySlot() reveal.Target
}

type Config struct {
	BaseURL   string
	StatePath string        // JSON state file; in-memory when empty
	TypeSpeed time.Duration // reveal cadence; DefaultInterval when zero
}

// App owns the page-session state: one capture session, one recorder, one
// chat session, one reveal driver.
type App struct {
	Router   *view.Router
	Capture  *capture.Session
	Recorder *capture.Recorder
	CheckIn  *checkin.Panel
	Chat     *chat.Synchronizer
	Reveal   *reveal.Revealer
	API      *api.Client

	ui    UI
	state store.KV
	log   *logrus.Entry
}

func New(cfg Config, device capture.Device, enc capture.Encoder, ui UI, logger *logrus.Logger) (*App, error) {
	var kv store.KV
	if cfg.StatePath != "" {
		f, err := store.OpenFile(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		kv = f
	} else {
		kv = store.NewMemory()
	}

	log := logger.WithField("component", "client")

	token := func() string {
		tok, _ := kv.Get(tokenKey)
		return tok
	}
	apiClient := api.New(cfg.BaseURL, token, log.WithField("component", "api"))

	rv := reveal.New(cfg.TypeSpeed, log.WithField("component", "reveal"))

	session := capture.NewSession(device, log.WithField("component", "capture"), ui.Notify)

	panel := checkin.NewPanel(apiClient, rv, ui.EmotionSlot(), ui.CheckinReplySlot(), log.WithField("component", "checkin"))
	chatSync := chat.NewSynchronizer(apiClient, kv, ui.ChatView(), rv, ui.ChatReplySlot(), ui.Notify, log.WithField("component", "chat"))

	dispatcher := &capture.Dispatcher{CheckIn: panel, Chat: chatSync, Log: log}

	recorder := capture.NewRecorder(session, enc, dispatcher, log.WithField("component", "recorder"))
	recorder.OnElapsed = ui.ElapsedChanged

	router := view.NewRouter(view.Welcome, view.Views, log.WithField("component", "router"))
	router.OnShow(ui.ShowView)
	router.HandleEnter(view.Record, func(ctx context.Context) {
		// entering the recorder view warms up the capture stream; failures
		// already surface a notice and stay retryable
		_, _ = session.Acquire(ctx)
	})
	router.HandleEnter(view.Chat, func(ctx context.Context) {
		chatSync.LoadHistory(ctx)
	})

	return &App{
		Router:   router,
		Capture:  session,
		Recorder: recorder,
		CheckIn:  panel,
		Chat:     chatSync,
		Reveal:   rv,
		API:      apiClient,
		ui:       ui,
		state:    kv,
		log:      log,
	}, nil
}

// Navigate switches views.
func (a *App) Navigate(ctx context.Context, hash string) string {
	return a.Router.Navigate(ctx, hash)
}

// Profile fetches /api/me; an expired or missing token redirects to sign-in
// instead of surfacing a raw error.
func (a *App) Profile(ctx context.Context) (*api.Me, error) {
	me, err := a.API.Me(ctx)
	if err != nil {
		if utils.IsCode(err, utils.CodeUnauthorized) {
			a.Router.Navigate(ctx, "#"+view.Login)
		}
		return nil, err
	}
	return me, nil
}

// SavePreferences stores goal and mood; failures surface as a notice.
func (a *App) SavePreferences(ctx context.Context, goal, mood string) error {
	if err := a.API.UpdatePreferences(ctx, goal, mood); err != nil {
		a.ui.Notify("Could not save preferences: " + utils.Message(err))
		return err
	}
	return nil
}

// SetToken stores the auth token after sign-in.
func (a *App) SetToken(token string) {
	if err := a.state.Set(tokenKey, token); err != nil {
		a.log.WithError(err).Warn("auth token not persisted")
	}
}

// SignOut removes the auth token; its absence signals "signed out".
func (a *App) SignOut() {
	_ = a.state.Delete(tokenKey)
}
