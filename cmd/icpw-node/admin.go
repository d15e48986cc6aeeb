package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/endpoint"
)

// newAdminHandler builds the node's small admin HTTP surface: a
// health check and a snapshot of the node's and its devices' current
// metrics, following the teacher's internal/api pattern of a gorilla/
// mux router exposing plain JSON endpoints.
func newAdminHandler(node *endpoint.Node) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/node", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, endpointSnapshot(node.GroupID(), node.EdgeNodeID(), &node.Base))
	}).Methods(http.MethodGet)

	r.HandleFunc("/devices", func(w http.ResponseWriter, _ *http.Request) {
		devices := node.Devices()
		out := make([]snapshot, 0, len(devices))
		for _, dev := range devices {
			out = append(out, endpointSnapshot(node.GroupID(), dev.DeviceID(), &dev.Base))
		}
		writeJSON(w, out)
	}).Methods(http.MethodGet)

	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	r.Use(handlers.CompressHandler)
	return r
}

type snapshot struct {
	GroupID  string         `json:"groupId"`
	Identity string         `json:"identity"`
	Metrics  map[string]any `json:"metrics"`
}

func endpointSnapshot(groupID, identity string, base *endpoint.Base) snapshot {
	metrics := make(map[string]any)
	for name, v := range base.AllMetrics() {
		if v == nil {
			metrics[name] = nil
			continue
		}
		metrics[name] = v.ToPython()
	}
	return snapshot{GroupID: groupID, Identity: identity, Metrics: metrics}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
