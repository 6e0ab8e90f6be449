package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/database"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/server"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/types"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/upload"
	"github.com/gorilla/websocket"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type UploadResponse struct {
	FileUrl string            `json:"file_url"`
	Kind    types.MessageKind `json:"kind"`
}

func (s *CampusApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func apiUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Name:         u.Name,
		EmailAddress: u.EmailAddress,
		Major:        u.Major,
		Role:         types.Role(u.Role),
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

func apiRoom(r database.Room) types.Room {
	return types.Room{
		Id:        r.Id,
		Name:      r.Name,
		Icon:      r.Icon,
		Type:      r.Type,
		CreatedAt: r.CreatedAt,
	}
}

// apiMessage converts a stored message for the wire. Soft-deleted
// messages keep their id and position but carry no content.
func apiMessage(m database.Message) types.Message {
	msg := types.Message{
		Id:       m.Id,
		Room:     m.Room,
		SenderId: m.SenderId,
		Kind:     types.MessageKind(m.Kind),
		Content:  m.Content,
		FileUrl:  m.FileUrl,
		Duration: m.Duration,
		Deleted:  m.Deleted,
		Sender: types.Sender{
			Name:  m.SenderName,
			Major: m.SenderMajor,
			Role:  types.Role(m.SenderRole),
		},
		Timestamp: m.CreatedAt,
	}

	if m.Deleted {
		msg.Content = ""
		msg.FileUrl = ""
		msg.Duration = 0
	}

	return msg
}

func (s *CampusApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewServiceUnavailableError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *CampusApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := apiUser(dbUser)

	token, err := s.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, u)
}

func (s *CampusApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *CampusApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, apiUser(user))
}

// listRooms returns the rooms visible to the requester: the sitewide
// room, their cohort room derived from their major, and every persisted
// group room.
func (s *CampusApp) listRooms(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := []types.Room{types.GlobalRoom()}
	if user.Major != "" {
		rooms = append(rooms, types.MajorRoom(user.Major))
	}

	dbRooms, err := s.db.ListRooms()
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	for _, dbRoom := range dbRooms {
		rooms = append(rooms, apiRoom(dbRoom))
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *CampusApp) createRoom(w http.ResponseWriter, r *http.Request) {
	if _, errResp := s.requireAdmin(r); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var createRoomReq CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&createRoomReq); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	name := strings.TrimSpace(createRoomReq.Name)
	if name == "" {
		errResp := NewBadRequestError("name is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	icon := strings.TrimSpace(createRoomReq.Icon)
	if icon == "" {
		icon = types.DefaultIcon(name)
	}

	params := database.CreateRoomParams{
		Id:   sid,
		Name: name,
		Icon: icon,
		Type: types.RoomTypeGroup,
	}

	newRoom, err := s.db.CreateRoom(params)
	if err != nil {
		s.log.Println("create room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, apiRoom(newRoom))
}

// deleteRoom removes a persisted group room and its messages. Derived
// rooms never exist in the database, so requests naming them get a 404.
func (s *CampusApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if _, errResp := s.requireAdmin(r); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId := r.PathValue("id")
	if roomId == "" {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomById(roomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteRoom(room.Id); err != nil {
		s.log.Println("delete room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.cs.UnloadRoom(r.Context(), room.Id); err != nil {
		s.log.Println("delete room from chat server:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *CampusApp) getMessages(w http.ResponseWriter, r *http.Request) {
	roomId := r.URL.Query().Get("room")
	if roomId == "" {
		errResp := NewBadRequestError("room is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !types.IsDerivedRoomId(roomId) {
		if _, err := s.db.GetRoomById(roomId); err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	var limit int
	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			errResp := NewBadRequestError("")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	messages, err := s.db.GetMessages(roomId, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userMessages := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		userMessages = append(userMessages, apiMessage(msg))
	}

	s.writeJson(w, http.StatusOK, userMessages)
}

// deleteMessage soft-deletes one of the requester's own messages and
// tells the room's live subscribers to swap in a placeholder.
func (s *CampusApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.GetMessage(messageId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if msg.SenderId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.SoftDeleteMessage(msg.Id); err != nil {
		s.log.Println("soft delete message:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.cs.NotifyMessageDeleted(msg.Room, msg.Id)

	s.writeJson(w, http.StatusNoContent, nil)
}

// uploadChatAttachment accepts a multipart file under the field
// "chatAttachment", stores it and returns the URL to embed in a
// publish payload. Media goes to the chat class, office documents and
// PDFs to the document class.
func (s *CampusApp) uploadChatAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxFileSize)

	file, header, err := r.FormFile("chatAttachment")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			errResp := NewPayloadTooLargeError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		errResp := NewBadRequestError("chatAttachment file is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")

	class := upload.ClassChatAttachment
	kind := messageKindForMime(mimeType)
	if kind == types.KindFile {
		class = upload.ClassDocument
	}

	if !upload.Validate(class, mimeType, ext) {
		errResp := NewUnsupportedMediaTypeError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	fileUrl, err := s.uploads.Save(class, file, header.Filename)
	if err != nil {
		if errors.Is(err, upload.ErrPayloadTooLarge) {
			errResp := NewPayloadTooLargeError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.log.Println("save upload:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, UploadResponse{
		FileUrl: fileUrl,
		Kind:    kind,
	})
}

func messageKindForMime(mimeType string) types.MessageKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return types.KindImage
	case strings.HasPrefix(mimeType, "audio/"):
		return types.KindAudio
	case strings.HasPrefix(mimeType, "video/"):
		return types.KindVideo
	default:
		return types.KindFile
	}
}

func (s *CampusApp) requireAdmin(r *http.Request) (database.User, *ApiError) {
	userId, ok := UserId(r.Context())
	if !ok {
		return database.User{}, NewUnauthorizedError()
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.User{}, NewUnauthorizedError()
		}
		return database.User{}, NewInternalServerError(err)
	}

	if types.Role(user.Role) != types.RoleAdmin {
		return database.User{}, NewForbiddenError()
	}

	return user, nil
}

func (s *CampusApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(apiUser(user), conn, s.cs, s.log, s.stats)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
