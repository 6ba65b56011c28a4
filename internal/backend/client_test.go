package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/popspot/popchat/internal/chat"
)

// fakeBackend serves canned responses and records what it received.
type fakeBackend struct {
	t          *testing.T
	lastAuth   string
	lastQuery  map[string]string
	lastBody   map[string]any
	uploaded   string
	hiddenRoom string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Client) {
	t.Helper()
	fb := &fakeBackend{t: t}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			fb.lastAuth = req.Header.Get("Authorization")
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/chat/rooms", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"roomId": 1, "roomType": "GROUP", "roomName": "Pop fans", "popupId": 5, "unreadCount": 2},
			{"roomId": 1, "roomType": "PRIVATE", "roomName": "mina", "lastMessageAt": "2026-05-01T10:00:00Z"},
		})
	})
	r.Post("/api/chat/rooms/{type}/{id}/hide", func(w http.ResponseWriter, req *http.Request) {
		fb.hiddenRoom = chi.URLParam(req, "type") + "/" + chi.URLParam(req, "id")
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/chat/messages", func(w http.ResponseWriter, req *http.Request) {
		fb.lastQuery = map[string]string{
			"roomId":   req.URL.Query().Get("roomId"),
			"roomType": req.URL.Query().Get("roomType"),
			"limit":    req.URL.Query().Get("limit"),
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"messages": []map[string]any{
				{"cmId": 7, "senderId": 2, "content": "newest", "messageType": "TEXT"},
				{"cmId": 6, "senderId": 1, "content": `{"popId":3,"popName":"Pop"}`, "messageType": "POPUP"},
				{"senderId": 1, "content": "no id"},
			},
			"lastReadMessageId":      6,
			"myLastReadMessageId":    6,
			"otherLastReadMessageId": 5,
			"participants": []map[string]any{
				{"userId": 1, "nickname": "me", "lastReadMessageId": 6},
				{"userId": 2, "nickname": "you", "lastReadMessageId": 5},
			},
		})
	})
	r.Post("/api/chat/group-rooms", func(w http.ResponseWriter, req *http.Request) {
		fb.lastBody = decodeBody(t, req)
		writeJSON(w, http.StatusCreated, map[string]any{"roomId": 40, "roomName": fb.lastBody["roomName"], "maxParticipants": 4})
	})
	r.Get("/api/chat/group-rooms", func(w http.ResponseWriter, req *http.Request) {
		fb.lastQuery = map[string]string{"popupId": req.URL.Query().Get("popupId")}
		writeJSON(w, http.StatusOK, []map[string]any{
			{"roomId": 40, "roomName": "weekend", "popupId": 5, "maxParticipants": 4, "currentParticipants": 2},
		})
	})
	r.Patch("/api/chat/group-rooms/{id}", func(w http.ResponseWriter, req *http.Request) {
		fb.lastBody = decodeBody(t, req)
		writeJSON(w, http.StatusOK, map[string]any{"roomId": 40, "roomName": "weekend", "maxParticipants": fb.lastBody["maxParticipants"]})
	})
	r.Get("/api/chat/group-rooms/{id}/participants", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"userId": 1, "nickname": "me", "lastReadMessageId": 12},
			{"userId": 2, "nickname": "you"},
		})
	})
	r.Post("/api/chat/group-rooms/{id}/leave", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") == "404" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "room not found"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/chat/private-rooms", func(w http.ResponseWriter, req *http.Request) {
		fb.lastBody = decodeBody(t, req)
		writeJSON(w, http.StatusOK, map[string]any{"roomId": 9, "otherUserId": fb.lastBody["targetUserId"], "otherNickname": "bora"})
	})
	r.Post("/api/chat/images", func(w http.ResponseWriter, req *http.Request) {
		file, header, err := req.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		fb.uploaded = header.Filename + ":" + string(data)
		writeJSON(w, http.StatusOK, map[string]string{"url": "https://cdn.example/" + header.Filename})
	})
	r.Post("/api/chat/scheduled-messages", func(w http.ResponseWriter, req *http.Request) {
		fb.lastBody = decodeBody(t, req)
		out := map[string]any{"id": 3}
		for k, v := range fb.lastBody {
			out[k] = v
		}
		writeJSON(w, http.StatusCreated, out)
	})
	r.Post("/api/chat/reports", func(w http.ResponseWriter, req *http.Request) {
		fb.lastBody = decodeBody(t, req)
		w.WriteHeader(http.StatusAccepted)
	})
	r.Delete("/api/chat/scheduled-messages/{id}", func(w http.ResponseWriter, req *http.Request) {
		if _, err := strconv.Atoi(chi.URLParam(req, "id")); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/users/{id}/mini-profile", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fb, New(srv.URL+"/", "tok")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	var m map[string]any
	if err := json.NewDecoder(req.Body).Decode(&m); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return m
}

func TestRooms(t *testing.T) {
	fb, c := newFakeBackend(t)
	rooms, err := c.Rooms(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fb.lastAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", fb.lastAuth)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}
	if rooms[0].Key != (chat.RoomKey{Type: chat.Group, ID: 1}) || rooms[0].UnreadCount != 2 || rooms[0].PopupID != 5 {
		t.Errorf("rooms[0] = %+v", rooms[0])
	}
	if rooms[1].Key.Type != chat.Private || rooms[1].LastMessageAt.IsZero() {
		t.Errorf("rooms[1] = %+v", rooms[1])
	}
}

func TestMessagesPage(t *testing.T) {
	fb, c := newFakeBackend(t)
	key := chat.RoomKey{Type: chat.Private, ID: 3}

	page, err := c.Messages(context.Background(), key, 30)
	if err != nil {
		t.Fatal(err)
	}
	if fb.lastQuery["roomId"] != "3" || fb.lastQuery["roomType"] != "PRIVATE" || fb.lastQuery["limit"] != "30" {
		t.Errorf("query = %v", fb.lastQuery)
	}
	if len(page.Messages) != 2 || page.Skipped != 1 {
		t.Fatalf("messages = %d skipped = %d, want 2 and 1", len(page.Messages), page.Skipped)
	}
	if page.Messages[0].Room != key {
		t.Errorf("room not defaulted from query: %v", page.Messages[0].Room)
	}
	if _, ok := page.Messages[1].Content.(chat.PopupShare); !ok {
		t.Errorf("popup content = %#v", page.Messages[1].Content)
	}
	if page.EntryReadMessageID != 6 || page.OtherLastReadMessageID != 5 || len(page.Participants) != 2 {
		t.Errorf("markers = %+v", page)
	}
}

func TestCreateGroupRoom(t *testing.T) {
	fb, c := newFakeBackend(t)
	room, err := c.CreateGroupRoom(context.Background(), chat.CreateRoomRequest{PopupID: 5, RoomName: "weekend", MaxParticipants: 4})
	if err != nil {
		t.Fatal(err)
	}
	if room.Key() != (chat.RoomKey{Type: chat.Group, ID: 40}) || room.RoomName != "weekend" {
		t.Errorf("room = %+v", room)
	}
	if fb.lastBody["popupId"] != float64(5) || fb.lastBody["maxParticipants"] != float64(4) {
		t.Errorf("body = %v", fb.lastBody)
	}
}

func TestGroupRoomQueries(t *testing.T) {
	fb, c := newFakeBackend(t)
	ctx := context.Background()

	rooms, err := c.GroupRooms(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if fb.lastQuery["popupId"] != "5" || len(rooms) != 1 || rooms[0].CurrentParticipants != 2 {
		t.Errorf("query = %v rooms = %+v", fb.lastQuery, rooms)
	}
	if _, err := c.GroupRooms(ctx, 0); err != nil || fb.lastQuery["popupId"] != "" {
		t.Errorf("unfiltered query = %v, %v", fb.lastQuery, err)
	}

	ps, err := c.Participants(ctx, 40)
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 || ps[0].LastReadMessageID != 12 || ps[1].Nickname != "you" {
		t.Errorf("participants = %+v", ps)
	}

	limit := 6
	room, err := c.UpdateGroupRoom(ctx, 40, UpdateGroupRoomRequest{MaxParticipants: &limit})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fb.lastBody["roomName"]; ok {
		t.Errorf("unset name was sent: %v", fb.lastBody)
	}
	if room.MaxParticipants != 6 {
		t.Errorf("room = %+v", room)
	}
}

func TestScheduledMessageAndReport(t *testing.T) {
	fb, c := newFakeBackend(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	m, err := c.CreateScheduledMessage(ctx, ScheduledMessage{RoomID: 4, RoomType: chat.Group, Content: "see you", MessageType: chat.TypeText, ScheduledAt: at})
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != 3 || !m.ScheduledAt.Equal(at) || m.RoomType != chat.Group {
		t.Errorf("scheduled = %+v", m)
	}
	if fb.lastBody["content"] != "see you" || fb.lastBody["messageType"] != "TEXT" {
		t.Errorf("body = %v", fb.lastBody)
	}

	if err := c.Report(ctx, ReportRequest{RoomID: 4, RoomType: chat.Group, MessageID: 10, Reason: "spam"}); err != nil {
		t.Fatal(err)
	}
	if fb.lastBody["reason"] != "spam" || fb.lastBody["messageId"] != float64(10) {
		t.Errorf("report body = %v", fb.lastBody)
	}
}

func TestStartPrivateChat(t *testing.T) {
	fb, c := newFakeBackend(t)
	pr, err := c.StartPrivateChat(context.Background(), 22)
	if err != nil {
		t.Fatal(err)
	}
	if fb.lastBody["targetUserId"] != float64(22) {
		t.Errorf("body = %v", fb.lastBody)
	}
	room := pr.Room()
	if room.Key != (chat.RoomKey{Type: chat.Private, ID: 9}) || room.Name != "bora" {
		t.Errorf("room = %+v", room)
	}
}

func TestHideRoomPath(t *testing.T) {
	fb, c := newFakeBackend(t)
	if err := c.HideRoom(context.Background(), chat.RoomKey{Type: chat.Group, ID: 8}); err != nil {
		t.Fatal(err)
	}
	if fb.hiddenRoom != "GROUP/8" {
		t.Errorf("hidden = %q", fb.hiddenRoom)
	}
}

func TestAPIErrors(t *testing.T) {
	_, c := newFakeBackend(t)

	err := c.LeaveGroupRoom(context.Background(), 404)
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("LeaveGroupRoom() error = %v, want 404 APIError", err)
	}
	if got := err.Error(); got != "backend POST /api/chat/group-rooms/404/leave: 404 room not found" {
		t.Errorf("message = %q", got)
	}

	_, err = c.MiniProfile(context.Background(), 1)
	if !IsStatus(err, http.StatusInternalServerError) {
		t.Errorf("MiniProfile() error = %v, want 500 APIError", err)
	}

	if err := c.LeaveGroupRoom(context.Background(), 1); err != nil {
		t.Errorf("LeaveGroupRoom(1) error = %v", err)
	}
	if err := c.DeleteScheduledMessage(context.Background(), 3); err != nil {
		t.Errorf("DeleteScheduledMessage() error = %v", err)
	}
}

func TestUploadImage(t *testing.T) {
	fb, c := newFakeBackend(t)
	path := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(path, []byte("PNGDATA"), 0600); err != nil {
		t.Fatal(err)
	}

	url, err := c.UploadImage(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example/pic.png" {
		t.Errorf("url = %q", url)
	}
	if fb.uploaded != "pic.png:PNGDATA" {
		t.Errorf("uploaded = %q", fb.uploaded)
	}
}

func TestUploadImageMissingFile(t *testing.T) {
	_, c := newFakeBackend(t)
	if _, err := c.UploadImage(context.Background(), "/nonexistent/pic.png"); err == nil {
		t.Error("expected error for missing file")
	}
}
