package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/loteria-client/internal/failure"
	"github.com/DoyleJ11/loteria-client/internal/supervisor"
	"github.com/DoyleJ11/loteria-client/internal/types"
)

// Controller is the slice of the supervisor the local API drives.
type Controller interface {
	View(ctx context.Context) (supervisor.View, error)
	Do(ctx context.Context, cmd supervisor.Command) error
	Start(ctx context.Context, matchID int64) error
	Stop(ctx context.Context) error
	Resume(ctx context.Context) error
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func GetView(ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := ctrl.View(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.FromView(v))
	}
}

func RunCommand(ctrl Controller, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var req types.CommandRequest
		if err := decodeOptional(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "bad json"})
			return
		}
		cmd, ok := types.ToCommand(name, req.Position, req.Accept)
		if !ok {
			writeJSON(w, http.StatusNotFound, types.ErrorResponse{Error: "unknown command " + name})
			return
		}

		if err := ctrl.Do(r.Context(), cmd); err != nil {
			log.Debug("command rejected", zap.String("command", name), zap.Error(err))
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func StartPolling(ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.StartRequest
		if err := decodeOptional(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "bad json"})
			return
		}
		if err := ctrl.Start(r.Context(), req.MatchID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func StopPolling(ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.Stop(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ResumePolling(ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.Resume(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// decodeOptional accepts an empty body as the zero value.
func decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, supervisor.ErrClosed):
		return http.StatusServiceUnavailable
	}
	switch failure.KindOf(err) {
	case failure.KindBusinessRule:
		return http.StatusConflict
	case failure.KindDomain, failure.KindValidation:
		return http.StatusUnprocessableEntity
	case failure.KindAuth:
		return http.StatusUnauthorized
	case failure.KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), types.ErrorResponse{
		Error: failure.Message(err),
		Kind:  string(failure.KindOf(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
