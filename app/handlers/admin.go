package main

import (
	"net/http"

	"github.com/crewnet/enrol-service/app/dto"
)

func (app *application) inviteHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.InviteRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "invite", appErr)
		return
	}

	result, appErr := app.enrol.Invite(r.Context(), req)
	if appErr != nil {
		writeError(w, "invite", appErr)
		return
	}
	writeResult(w, "invite", http.StatusOK, result)
}

func (app *application) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "create", appErr)
		return
	}

	result, appErr := app.admin.CreateUser(r.Context(), req)
	if appErr != nil {
		writeError(w, "create", appErr)
		return
	}
	writeResult(w, "create", http.StatusCreated, result)
}

// changeEnrollmentHandler applies an admin status decision. A nil result
// with nil error means the request was silently ignored; that maps to
// 204 with no body.
func (app *application) changeEnrollmentHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangeEnrollmentRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "change", appErr)
		return
	}

	result, appErr := app.admin.ChangeEnrollmentStatus(r.Context(), req)
	if appErr != nil {
		writeError(w, "change", appErr)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeResult(w, "change", http.StatusOK, *result)
}

func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteUserRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "delete", appErr)
		return
	}

	result, appErr := app.admin.DeleteUser(r.Context(), req)
	if appErr != nil {
		writeError(w, "delete", appErr)
		return
	}
	writeResult(w, "delete", http.StatusOK, result)
}

func (app *application) addRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.RoleRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "addrole", appErr)
		return
	}

	result, appErr := app.admin.AddRole(r.Context(), req)
	if appErr != nil {
		writeError(w, "addrole", appErr)
		return
	}
	writeResult(w, "addrole", http.StatusOK, result)
}

func (app *application) delRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.RoleRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "delrole", appErr)
		return
	}

	result, appErr := app.admin.DelRole(r.Context(), req)
	if appErr != nil {
		writeError(w, "delrole", appErr)
		return
	}
	writeResult(w, "delrole", http.StatusOK, result)
}

func (app *application) toggleHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.ToggleRequest
	if appErr := decode(r, &req); appErr != nil {
		writeError(w, "toggle", appErr)
		return
	}

	result, appErr := app.admin.ToggleActive(r.Context(), req)
	if appErr != nil {
		writeError(w, "toggle", appErr)
		return
	}
	writeResult(w, "toggle", http.StatusOK, result)
}
