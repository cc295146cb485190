package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

type usersResponse struct {
	UserGroups map[string][]string `json:"user_groups"`
	UserCount  int                 `json:"user_count"`
}

type userGroupsResponse struct {
	UserID  string   `json:"user_id"`
	Groups  []string `json:"groups"`
	Message string   `json:"message,omitempty"`
}

type setGroupsRequest struct {
	Groups []string `json:"groups"`
}

type addGroupResponse struct {
	UserID       string   `json:"user_id"`
	AddedToGroup string   `json:"added_to_group"`
	AllGroups    []string `json:"all_groups"`
}

type removeGroupResponse struct {
	UserID           string   `json:"user_id"`
	RemovedFromGroup string   `json:"removed_from_group"`
	RemainingGroups  []string `json:"remaining_groups"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	all := s.members.ListAll()
	writeJSON(w, http.StatusOK, usersResponse{UserGroups: all, UserCount: len(all)})
}

func (s *Server) handleGetUserGroups(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, userGroupsResponse{UserID: user, Groups: s.members.Groups(user)})
}

// handleSetUserGroups replaces the user's groups with the body's list. An
// empty list clears them; a missing list is rejected.
func (s *Server) handleSetUserGroups(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["id"]
	var req setGroupsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Groups == nil {
		writeError(w, http.StatusBadRequest, "groups is required")
		return
	}

	groups := s.members.SetGroups(user, req.Groups)
	s.logFrom(r).WithField("user_id", user).WithField("groups", groups).Debug("groups replaced")
	writeJSON(w, http.StatusOK, userGroupsResponse{
		UserID:  user,
		Groups:  groups,
		Message: fmt.Sprintf("user %s now belongs to %d groups", user, len(groups)),
	})
}

func (s *Server) handleAddUserGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	user, group := vars["id"], vars["group"]
	writeJSON(w, http.StatusOK, addGroupResponse{
		UserID:       user,
		AddedToGroup: group,
		AllGroups:    s.members.AddToGroup(user, group),
	})
}

func (s *Server) handleRemoveUserGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	user, group := vars["id"], vars["group"]
	writeJSON(w, http.StatusOK, removeGroupResponse{
		UserID:           user,
		RemovedFromGroup: group,
		RemainingGroups:  s.members.RemoveFromGroup(user, group),
	})
}
