package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fiffu/isitup/config"
	"github.com/fiffu/isitup/lib"
	"github.com/fiffu/isitup/lib/models"
	"github.com/fiffu/isitup/lib/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service, st *store.Store) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc, st)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Sugar().Errorw("HTTP server stopped", "err", err)
				}
			}()
			log.Sugar().Infof("Listening on %s", addr)
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service, st *store.Store) http.Handler {
	ctrl := &controller{log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			ctrl.reject(w, http.StatusServiceUnavailable, err)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if creds := cfg.GetCreds(); len(creds) > 0 {
			r.Use(middleware.BasicAuth("isitup", creds))
		} else {
			log.Sugar().Info("Auth is disabled since no credentials are defined")
		}

		r.Post("/verify", ctrl.verify)

		if cfg.TrackFeature {
			r.Route("/subscribers/{subscriber_id}/urls", func(r chi.Router) {
				r.Post("/", ctrl.track)
				r.Get("/", ctrl.listURLs)
				r.Get("/options", ctrl.listOptions)
				r.Delete("/{key}", ctrl.deleteURL)
			})
		}
	})

	return r
}

type controller struct {
	log *zap.Logger
	svc *lib.Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidURL):
		ctrl.reject(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrStoreUnavailable):
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		ctrl.reject(w, http.StatusServiceUnavailable, errors.New("store unavailable, try again later"))
	default:
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		ctrl.reject(w, http.StatusInternalServerError, err)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		return
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(b)
	}
}

func (ctrl *controller) subscriberID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "subscriber_id"), 10, 64)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("subscriber_id must be an integer"))
		return 0, false
	}
	return id, true
}

func (ctrl *controller) verify(w http.ResponseWriter, r *http.Request) {
	url := r.FormValue("url")
	if url == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}
	normalized, err := store.Normalize(url)
	if err != nil {
		ctrl.fail(w, err)
		return
	}

	outcome := ctrl.svc.Verify(r.Context(), normalized)
	ctrl.resolve(w, http.StatusOK, OutcomeView{}.From(outcome))
}

func (ctrl *controller) track(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := ctrl.subscriberID(w, r)
	if !ok {
		return
	}
	url := r.FormValue("url")
	if url == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	res, outcome, err := ctrl.svc.VerifyAndTrack(r.Context(), subscriberID, url)
	if err != nil {
		ctrl.fail(w, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyTracked {
		status = http.StatusOK
	}
	ctrl.resolve(w, status, map[string]any{
		"subscription": res,
		"check":        OutcomeView{}.From(outcome),
	})
}

func (ctrl *controller) listURLs(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := ctrl.subscriberID(w, r)
	if !ok {
		return
	}

	listing, err := ctrl.svc.ListURLs(r.Context(), subscriberID)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"empty": listing.Empty(),
		"urls":  FromMany[models.TrackEntry, TrackEntryView](listing.Entries),
	})
}

func (ctrl *controller) listOptions(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := ctrl.subscriberID(w, r)
	if !ok {
		return
	}

	listing, err := ctrl.svc.ListURLs(r.Context(), subscriberID)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"empty":   listing.Empty(),
		"options": listing.Options(),
	})
}

func (ctrl *controller) deleteURL(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := ctrl.subscriberID(w, r)
	if !ok {
		return
	}

	deleted, err := ctrl.svc.Delete(r.Context(), subscriberID, chi.URLParam(r, "key"))
	if err != nil {
		ctrl.fail(w, err)
		return
	}

	status := http.StatusOK
	if !deleted {
		status = http.StatusNotFound
	}
	ctrl.resolve(w, status, map[string]any{"deleted": deleted})
}
