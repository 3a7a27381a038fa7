package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kwv/wallmesh/mesh"
)

// maxPlanBytes bounds POST /render bodies
const maxPlanBytes = mesh.MaxPlanDocumentBytes

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(a *App) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Scenes    int       `json:"scenes"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Scenes:    a.Store.Len(),
		}
		writeJSON(w, http.StatusOK, status)
	})

	// Build a plan posted in any accepted encoding
	mux.HandleFunc("POST /render", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPlanBytes))
		if err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, fmt.Sprintf("reading body: %v", err), status)
			return
		}
		plan, err := mesh.DecodePlanData(body)
		if err != nil {
			log.Printf("[HTTP] /render decode error: %v", err)
			http.Error(w, fmt.Sprintf("invalid plan: %v", err), http.StatusBadRequest)
			return
		}

		id := r.URL.Query().Get("id")
		if id == "" {
			id = plan.ID
		}
		if id == "" {
			id = fmt.Sprintf("plan-%d", time.Now().UnixNano())
		}

		stored, err := a.buildAndStore(id, "http", plan)
		if err != nil {
			log.Printf("[HTTP] /render build error for %s: %v", id, err)
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		log.Printf("[HTTP] Built %s: %d walls, %d warnings", id, stored.Scene.Stats.Walls, len(stored.Scene.Warnings))

		w.Header().Set("Location", "/scenes/"+id)
		writeJSON(w, http.StatusCreated, stored.Scene)
	})

	mux.HandleFunc("GET /scenes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"scenes": a.Store.IDs()})
	})

	mux.HandleFunc("GET /scenes/{id}", func(w http.ResponseWriter, r *http.Request) {
		stored, ok := lookupScene(a.Store, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := mesh.WriteSceneJSON(w, stored.Scene); err != nil {
			log.Printf("Error encoding scene %s: %v", stored.ID, err)
		}
	})

	mux.HandleFunc("GET /scenes/{id}/plan.svg", func(w http.ResponseWriter, r *http.Request) {
		stored, ok := lookupScene(a.Store, w, r)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := a.vectorRenderer(stored.Plan, stored.Scene).RenderToSVG(&buf); err != nil {
			log.Printf("Warning: no drawable content; endpoint=/scenes/%s/plan.svg: %v", stored.ID, err)
			http.Error(w, "No drawable plan content", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(buf.Bytes())
	})

	mux.HandleFunc("GET /scenes/{id}/plan.png", func(w http.ResponseWriter, r *http.Request) {
		stored, ok := lookupScene(a.Store, w, r)
		if !ok {
			return
		}
		if !mesh.HasRooms(stored.Plan) {
			log.Printf("Warning: plan present but no drawable content; endpoint=/scenes/%s/plan.png", stored.ID)
			http.Error(w, "No drawable plan content", http.StatusServiceUnavailable)
			return
		}
		data, err := a.previewPNG(stored.Plan, stored.Scene)
		if err != nil {
			log.Printf("Error encoding preview PNG for %s: %v", stored.ID, err)
			http.Error(w, "Failed to render preview", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	})

	mux.HandleFunc("GET /scenes/{id}/plan.geojson", func(w http.ResponseWriter, r *http.Request) {
		stored, ok := lookupScene(a.Store, w, r)
		if !ok {
			return
		}
		data, err := mesh.PlanToFeatureCollection(stored.Plan, stored.Scene).MarshalJSON()
		if err != nil {
			http.Error(w, "Failed to encode GeoJSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	})

	return mux
}

// lookupScene resolves the {id} path value; "latest" names the newest build
func lookupScene(store *mesh.SceneStore, w http.ResponseWriter, r *http.Request) (*mesh.StoredScene, bool) {
	id := r.PathValue("id")
	var stored *mesh.StoredScene
	var ok bool
	if id == "latest" {
		stored, ok = store.Latest()
	} else {
		stored, ok = store.Get(id)
	}
	if !ok {
		http.Error(w, fmt.Sprintf("scene %q not found", id), http.StatusNotFound)
		return nil, false
	}
	return stored, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
