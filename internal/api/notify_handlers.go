package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dreamware/herald/internal/cluster"
	"github.com/dreamware/herald/internal/notify"
)

type statusSubscribeResponse struct {
	Status  string `json:"status"`
	Group   string `json:"group"`
	Version uint64 `json:"version"`
	Active  bool   `json:"active"`
	Change  bool   `json:"change"`
}

type userSubscribeResponse struct {
	Status        string   `json:"status"`
	UserID        string   `json:"user_id"`
	NotifiedGroup string   `json:"notified_group"`
	UserGroups    []string `json:"user_groups"`
	Version       uint64   `json:"version"`
	Active        bool     `json:"active"`
	Change        bool     `json:"change"`
}

type notifyResponse struct {
	Message string `json:"message"`
	Group   string `json:"group"`
	Version uint64 `json:"version"`
}

type notifyAllResponse struct {
	Message        string   `json:"message"`
	GroupsNotified []string `json:"groups_notified"`
}

type groupsResponse struct {
	ActiveGroups []notify.Group `json:"active_groups"`
	Count        int            `json:"count"`
}

func statusString(alive bool) string {
	if alive {
		return cluster.StatusAlive
	}
	return cluster.StatusDead
}

// handleSubscribeStatus long-polls one group, "default" when unspecified.
// 204 means the timeout passed without a signal.
func (s *Server) handleSubscribeStatus(w http.ResponseWriter, r *http.Request) {
	timeout, err := parseTimeout(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	group := r.URL.Query().Get("group")
	if group == "" {
		group = notify.StatusGroup
	}

	out := s.waiter.SubscribeGroup(group, timeout)
	if !out.Changed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, statusSubscribeResponse{
		Status:  statusString(out.Snapshot.Alive),
		Active:  out.Snapshot.Active,
		Change:  true,
		Group:   out.Group,
		Version: out.Version,
	})
}

// handleSubscribeUser long-polls every group of user_id and reports the
// first to change.
func (s *Server) handleSubscribeUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	timeout, err := parseTimeout(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := s.waiter.SubscribeUser(userID, timeout)
	if !out.Changed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, userSubscribeResponse{
		Status:        statusString(out.Snapshot.Alive),
		Active:        out.Snapshot.Active,
		Change:        true,
		UserID:        out.UserID,
		NotifiedGroup: out.NotifiedGroup,
		UserGroups:    out.AllGroups,
		Version:       out.Version,
	})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group"]
	res := s.disp.Notify(group)
	if res.All {
		writeJSON(w, http.StatusOK, notifyAllResponse{
			Message:        fmt.Sprintf("notified %d groups", len(res.Groups)),
			GroupsNotified: res.Groups,
		})
		return
	}
	writeJSON(w, http.StatusOK, notifyResponse{
		Message: fmt.Sprintf("notified group %s", group),
		Group:   group,
		Version: res.Version,
	})
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	names := s.reg.Names()
	groups := make([]notify.Group, 0, len(names))
	for _, name := range names {
		if g, ok := s.reg.Lookup(name); ok {
			groups = append(groups, g)
		}
	}
	writeJSON(w, http.StatusOK, groupsResponse{ActiveGroups: groups, Count: len(groups)})
}
