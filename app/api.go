package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fiffu/feedsync/config"
	"github.com/fiffu/feedsync/lib"
	"github.com/fiffu/feedsync/lib/models"
	"github.com/fiffu/feedsync/lib/syncer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service, reads *lib.ReadStates, sync *syncer.Syncer) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(log, svc, reads, sync)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(log *zap.Logger, svc *lib.Service, reads *lib.ReadStates, sync *syncer.Syncer) http.Handler {
	ctrl := &controller{log, svc, reads, sync}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/sources", func(r chi.Router) {
			r.Get("/", ctrl.listSources)
			r.Post("/", ctrl.addSource)
			r.Post("/import", ctrl.importSources)
			r.Delete("/{source_id}", ctrl.deleteSource)
			r.Post("/{source_id}/notify", ctrl.setSourceNotify)
			r.Post("/{source_id}/read", ctrl.markSourceRead)
			r.Get("/{source_id}/unread", ctrl.sourceUnread)
			r.Post("/{source_id}/items/read", ctrl.setItemRead)
		})

		r.Route("/groupings", func(r chi.Router) {
			r.Get("/", ctrl.listGroupings)
			r.Post("/", ctrl.createGrouping)
			r.Delete("/{grouping_id}", ctrl.deleteGrouping)
			r.Put("/{grouping_id}/name", ctrl.renameGrouping)
			r.Post("/{grouping_id}/default", ctrl.setDefaultGrouping)
			r.Post("/{grouping_id}/notify", ctrl.setGroupingNotify)
			r.Post("/{grouping_id}/read", ctrl.markGroupingRead)
			r.Get("/{grouping_id}/unread", ctrl.groupingUnread)
			r.Get("/{grouping_id}/sources", ctrl.groupingMembers)
			r.Post("/{grouping_id}/sources/{source_id}", ctrl.assignToGrouping)
			r.Delete("/{grouping_id}/sources/{source_id}", ctrl.removeFromGrouping)
		})

		r.Get("/unread", ctrl.totalUnread)
		r.Post("/read", ctrl.markEverythingRead)
		r.Post("/sync", ctrl.syncNow)
	})

	return r
}

type controller struct {
	log   *zap.Logger
	svc   *lib.Service
	reads *lib.ReadStates
	sync  *syncer.Syncer
}

func (ctrl *controller) reject(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if models.IsNotFound(err) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.log.Sugar().Errorw("Request failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	} else {
		w.WriteHeader(status)
		w.Write(b)
	}
}

func (ctrl *controller) addSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	feedURL := r.FormValue("url")
	if feedURL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	var groupingID *uint
	if raw := r.FormValue("grouping_id"); raw != "" {
		id := parseInt(raw)
		groupingID = &id
	}

	source, err := ctrl.svc.AddSource(ctx, feedURL, groupingID)
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, SourceView{}.From(source))
}

func (ctrl *controller) importSources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var entries []ImportEntryView
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batch := make([]models.ImportEntry, len(entries))
	for i, entry := range entries {
		batch[i] = models.ImportEntry{URL: entry.URL, Title: entry.Title, GroupingName: entry.GroupingName}
	}

	report, err := ctrl.svc.ImportSources(ctx, batch)
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, ImportReportView{}.From(report))
}

func (ctrl *controller) listSources(w http.ResponseWriter, r *http.Request) {
	all, err := ctrl.svc.ListSources(r.Context())
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	views := make([]SourceView, len(all))
	for i := range all {
		views[i] = SourceView{}.From(&all[i])
	}
	ctrl.resolve(w, http.StatusOK, views)
}

func (ctrl *controller) deleteSource(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.svc.DeleteSource(r.Context(), urlParamInt(r, "source_id")); err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) setSourceNotify(w http.ResponseWriter, r *http.Request) {
	enabled := r.FormValue("enabled") == "true"
	if err := ctrl.svc.SetSourceNotify(r.Context(), urlParamInt(r, "source_id"), enabled); err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) markSourceRead(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.reads.MarkSourceRead(r.Context(), urlParamInt(r, "source_id")); err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) sourceUnread(w http.ResponseWriter, r *http.Request) {
	count, err := ctrl.reads.SourceUnread(r.Context(), urlParamInt(r, "source_id"))
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"unread": count})
}

func (ctrl *controller) setItemRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sourceID := urlParamInt(r, "source_id")
	itemKey := r.FormValue("key")
	if itemKey == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	isRead := r.FormValue("read") != "false"
	var err error
	if isRead && r.FormValue("from_notification") == "true" {
		err = ctrl.svc.ReadItemFromNotification(ctx, sourceID, itemKey)
	} else {
		err = ctrl.reads.SetRead(ctx, sourceID, itemKey, isRead)
	}
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) listGroupings(w http.ResponseWriter, r *http.Request) {
	all, err := ctrl.svc.ListGroupings(r.Context())
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	views := make([]GroupingView, len(all))
	for i := range all {
		views[i] = GroupingView{}.From(&all[i])
	}
	ctrl.resolve(w, http.StatusOK, views)
}

func (ctrl *controller) createGrouping(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	grouping, err := ctrl.svc.CreateGrouping(r.Context(), name)
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, GroupingView{}.From(grouping))
}

func (ctrl *controller) deleteGrouping(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.svc.DeleteGrouping(r.Context(), urlParamInt(r, "grouping_id")); err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) renameGrouping(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := ctrl.svc.RenameGrouping(r.Context(), urlParamInt(r, "grouping_id"), name); err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) setDefaultGrouping(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.svc.SetDefaultGrouping(r.Context(), urlParamInt(r, "grouping_id")); err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) setGroupingNotify(w http.ResponseWriter, r *http.Request) {
	enabled := r.FormValue("enabled") == "true"
	if err := ctrl.svc.SetGroupingNotify(r.Context(), urlParamInt(r, "grouping_id"), enabled); err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) markGroupingRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupingID := urlParamInt(r, "grouping_id")

	var err error
	if r.FormValue("from_notification") == "true" {
		err = ctrl.svc.ReadGroupingFromNotification(ctx, groupingID)
	} else {
		err = ctrl.reads.MarkGroupingRead(ctx, groupingID)
	}
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) groupingUnread(w http.ResponseWriter, r *http.Request) {
	count, err := ctrl.reads.GroupingUnread(r.Context(), urlParamInt(r, "grouping_id"))
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"unread": count})
}

func (ctrl *controller) groupingMembers(w http.ResponseWriter, r *http.Request) {
	members, err := ctrl.svc.GroupingMembers(r.Context(), urlParamInt(r, "grouping_id"))
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	views := make([]SourceView, len(members))
	for i := range members {
		views[i] = SourceView{}.From(&members[i])
	}
	ctrl.resolve(w, http.StatusOK, views)
}

func (ctrl *controller) assignToGrouping(w http.ResponseWriter, r *http.Request) {
	err := ctrl.svc.AssignToGrouping(r.Context(), urlParamInt(r, "source_id"), urlParamInt(r, "grouping_id"))
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) removeFromGrouping(w http.ResponseWriter, r *http.Request) {
	err := ctrl.svc.RemoveFromGrouping(r.Context(), urlParamInt(r, "source_id"), urlParamInt(r, "grouping_id"))
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) totalUnread(w http.ResponseWriter, r *http.Request) {
	count, err := ctrl.reads.TotalUnread(r.Context())
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"unread": count})
}

func (ctrl *controller) markEverythingRead(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.reads.MarkEverythingRead(r.Context()); err != nil {
		ctrl.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// syncNow runs a manual sync and returns its outcome. With wait=false
// the run is handed to the syncer's wakeup queue instead and the request
// returns immediately. Manual runs never emit notifications.
func (ctrl *controller) syncNow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scope := models.ScopeOfAll()
	switch r.FormValue("scope") {
	case "source":
		scope = models.ScopeOfSource(parseInt(r.FormValue("id")))
	case "grouping":
		scope = models.ScopeOfGrouping(parseInt(r.FormValue("id")))
	}

	if r.FormValue("wait") == "false" {
		ctrl.sync.TriggerNow(scope, models.TriggerManual)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	outcome := ctrl.sync.RunSync(ctx, scope, models.TriggerManual)
	if outcome.State == models.RunFailed {
		ctrl.reject(w, outcome.Err)
		return
	}
	ctrl.resolve(w, http.StatusOK, OutcomeView{}.From(outcome))
}

func urlParamInt(r *http.Request, key string) uint {
	return parseInt(chi.URLParam(r, key))
}

func parseInt(s string) uint {
	u, _ := strconv.ParseUint(s, 10, 64)
	return uint(u)
}
