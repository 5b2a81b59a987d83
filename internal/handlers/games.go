// internal/handlers/games.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/fizzbuzz/internal/models"
)

// ListGamesHandler handles GET /api/games.
func (a *APIServer) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	games, err := a.svc.ListGames(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, games)
}

// GetGameHandler handles GET /api/games/{id}.
func (a *APIServer) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Game")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	g, err := a.svc.GetGame(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, g)
}

// CreateGameHandler handles POST /api/games and answers 201 with the stored game.
func (a *APIServer) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GameRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	g, err := a.svc.CreateGame(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/games/"+g.ID.String())
	writeSuccess(w, http.StatusCreated, g)
}

// UpdateGameHandler handles PUT /api/games/{id}. Rules are replaced wholesale.
func (a *APIServer) UpdateGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Game")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req models.GameRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	g, err := a.svc.UpdateGame(r.Context(), id, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, g)
}

// DeleteGameHandler handles DELETE /api/games/{id}.
func (a *APIServer) DeleteGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Game")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.svc.DeleteGame(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Game deleted")
}
