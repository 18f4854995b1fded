package main

import (
	"net/http"

	"github.com/crewnet/enrol-service/app/dto"
	enrolmw "github.com/crewnet/enrol-service/app/middleware"
)

func (app *application) statusHandler(w http.ResponseWriter, r *http.Request) {
	result, appErr := app.enrol.Status()
	if appErr != nil {
		writeError(w, "status", appErr)
		return
	}
	writeResult(w, "status", http.StatusOK, result)
}

func (app *application) captchaHandler(w http.ResponseWriter, r *http.Request) {
	requesterID := enrolmw.RequesterIDFromContext(r.Context())
	if requesterID == "" {
		writeResult(w, "captcha", http.StatusBadRequest, dto.Fail("No requester id"))
		return
	}

	result, appErr := app.enrol.Captcha(requesterID)
	if appErr != nil {
		writeError(w, "captcha", appErr)
		return
	}
	writeResult(w, "captcha", http.StatusOK, result)
}

func (app *application) enrolHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.EnrolRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "enrol", appErr)
		return
	}

	requesterID := enrolmw.RequesterIDFromContext(r.Context())
	result, appErr := app.enrol.Enrol(r.Context(), requesterID, req)
	if appErr != nil {
		writeError(w, "enrol", appErr)
		return
	}
	writeResult(w, "enrol", http.StatusOK, result)
}

func (app *application) acceptHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.AcceptRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "accept", appErr)
		return
	}

	result, appErr := app.enrol.Accept(r.Context(), req.UUID)
	if appErr != nil {
		writeError(w, "accept", appErr)
		return
	}
	writeResult(w, "accept", http.StatusOK, result)
}

func (app *application) requestResetHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.RequestResetRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "request_reset", appErr)
		return
	}

	result, appErr := app.enrol.RequestReset(r.Context(), req.Email)
	if appErr != nil {
		writeError(w, "request_reset", appErr)
		return
	}
	if result == nil {
		// Known address: accepted with nothing to say.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeResult(w, "request_reset", http.StatusOK, *result)
}

// changePasswordHandler changes the calling user's own password; the
// requester id identifies the account.
func (app *application) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "changepassword", appErr)
		return
	}

	requesterID := enrolmw.RequesterIDFromContext(r.Context())
	if requesterID == "" {
		writeResult(w, "changepassword", http.StatusBadRequest, dto.Fail("No requester id"))
		return
	}

	result, appErr := app.admin.ChangePassword(r.Context(), requesterID, req)
	if appErr != nil {
		writeError(w, "changepassword", appErr)
		return
	}
	writeResult(w, "changepassword", http.StatusOK, result)
}
