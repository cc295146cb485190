package api

import (
	"fmt"
	"net/http"

	"github.com/dreamware/herald/internal/chat"
)

// ChatGroupName is the notification group signaled when a message is sent
// to chat group id.
func ChatGroupName(id int64) string {
	return fmt.Sprintf("chat-%d", id)
}

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
	Created  bool   `json:"created"`
}

type createChatRequest struct {
	GroupName string   `json:"groupName"`
	Members   []string `json:"members"`
	CreatorID int64    `json:"creatorId"`
}

type chatsResponse struct {
	Chats  []chat.Group `json:"chats"`
	UserID int64        `json:"user_id"`
}

type sendRequest struct {
	Text   string `json:"text"`
	UserID int64  `json:"user_id"`
	ChatID int64  `json:"chat_id"`
}

type messagesResponse struct {
	Messages []chat.Message `json:"messages"`
	ChatID   int64          `json:"chat_id"`
}

type groupUsersResponse struct {
	Users   []chat.User `json:"users"`
	GroupID int64       `json:"group_id"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, created, err := s.chat.Login(req.Username)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if created {
		s.logFrom(r).WithField("user_id", u.ID).Info("user created")
	}
	writeJSON(w, http.StatusOK, loginResponse{UserID: u.ID, Username: u.Username, Created: created})
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CreatorID == 0 {
		writeError(w, http.StatusBadRequest, "creatorId is required")
		return
	}
	g, err := s.chat.CreateGroup(req.GroupName, req.CreatorID, req.Members)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	groups, err := s.chat.UserGroups(userID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatsResponse{UserID: userID, Chats: groups})
}

// handleSend stores the message and wakes subscribers of the chat's
// notification group.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ChatID == 0 || req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "chat_id and user_id are required")
		return
	}
	m, err := s.chat.SendMessage(req.ChatID, req.UserID, req.Text)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.disp.Notify(ChatGroupName(m.GroupID))
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	chatID, err := queryID(r, "chatId", "groupId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msgs, err := s.chat.Messages(chatID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{ChatID: chatID, Messages: msgs})
}

func (s *Server) handleGroupUsers(w http.ResponseWriter, r *http.Request) {
	groupID, err := queryID(r, "groupId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	users, err := s.chat.GroupMembers(groupID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupUsersResponse{GroupID: groupID, Users: users})
}
