package app

import (
	"github.com/gorilla/mux"
	"github.com/varsla/varsla/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Calendar events
	r.HandleFunc("/api/event", deps.EventHandler.GetEvents).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/event", deps.EventHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/event/{eventUid}", deps.EventHandler.GetEvent).Methods("GET")
	r.HandleFunc("/api/event/{eventUid}", deps.EventHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/event/{eventUid}", deps.EventHandler.DeleteEvent).Methods("DELETE")

	// Event members
	r.HandleFunc("/api/event/{eventUid}/member", deps.EventHandler.SetMembers).Methods("PUT")

	// Per-occurrence exceptions
	r.HandleFunc("/api/event/{eventUid}/exception", deps.EventHandler.AddException).Methods("POST")
	r.HandleFunc("/api/event/{eventUid}/exception", deps.EventHandler.RemoveException).Queries("originalStart", "{originalStart}").Methods("DELETE")

	// Calendar feed (token-authenticated, no session)
	r.HandleFunc("/api/feed/{token}/calendar.ics", deps.FeedHandler.GetCalendar).Methods("GET")
	r.HandleFunc("/api/feed/token", deps.FeedHandler.CreateToken).Methods("POST")
	r.HandleFunc("/api/feed/token", deps.FeedHandler.RevokeToken).Methods("DELETE")
}
