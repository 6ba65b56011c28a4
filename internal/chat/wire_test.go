package chat

import (
	"encoding/json"
	"testing"
)

func TestDecodePushTyping(t *testing.T) {
	evt, err := DecodePush([]byte(`{"type":"TYPING_START","roomType":"group","roomId":12,"senderId":4,"senderNickname":"mina"}`))
	if err != nil {
		t.Fatal(err)
	}
	if evt.Kind != KindTypingStart || evt.Room != (RoomKey{Type: Group, ID: 12}) {
		t.Errorf("event = %+v", evt)
	}
	if evt.Typing == nil || evt.Typing.UserID != 4 || evt.Typing.Nickname != "mina" {
		t.Errorf("typing = %+v", evt.Typing)
	}
}

func TestDecodePushMessage(t *testing.T) {
	raw := `{"type":"MESSAGE","payload":{"cmId":88,"roomId":"3","roomType":"PRIVATE","senderId":2,
		"content":"hi","messageType":"TEXT","clientMessageKey":"abc","createdAt":"2026-01-02T03:04:05"}}`
	evt, err := DecodePush([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	m := evt.Message
	if m == nil {
		t.Fatal("message missing")
	}
	if !m.ID.IsPersisted() || m.ID.Value() != 88 {
		t.Errorf("id = %s, want 88", m.ID)
	}
	if m.Room != (RoomKey{Type: Private, ID: 3}) || evt.Room != m.Room {
		t.Errorf("room = %v / %v", m.Room, evt.Room)
	}
	if m.ClientMessageKey != "abc" {
		t.Errorf("key = %q", m.ClientMessageKey)
	}
	if txt, ok := m.Content.(Text); !ok || txt.Body != "hi" {
		t.Errorf("content = %#v", m.Content)
	}
	if m.CreatedAt.IsZero() || m.CreatedAt.Second() != 5 {
		t.Errorf("created at = %v", m.CreatedAt)
	}
}

func TestDecodePushRead(t *testing.T) {
	evt, err := DecodePush([]byte(`{"type":"READ","roomType":"GROUP","roomId":1,"userId":9,"lastReadMessageId":40}`))
	if err != nil {
		t.Fatal(err)
	}
	if evt.Read == nil || evt.Read.ReaderID != 9 || evt.Read.LastReadMessageID != 40 {
		t.Errorf("read = %+v", evt.Read)
	}
}

func TestDecodePushErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"unknown type", `{"type":"PRESENCE"}`},
		{"message without payload", `{"type":"MESSAGE"}`},
		{"bad room type", `{"type":"TYPING_STOP","roomType":"CHANNEL","roomId":1}`},
		{"message without id or key", `{"type":"MESSAGE","payload":{"roomId":1,"roomType":"GROUP"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePush([]byte(tt.raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNormalizePopupShareSpellings(t *testing.T) {
	tests := []struct {
		name string
		body string
		want PopupShare
	}{
		{"popId", `{"popId":7,"popName":"Pop","thumbnail":"t.png","address":"Seoul"}`, PopupShare{PopupID: 7, Name: "Pop", ImageURL: "t.png", Address: "Seoul"}},
		{"popupId", `{"popupId":"8","name":"Other","imageUrl":"i.png"}`, PopupShare{PopupID: 8, Name: "Other", ImageURL: "i.png"}},
		{"id", `{"id":9,"title":"T","location":"Busan"}`, PopupShare{PopupID: 9, Name: "T", Address: "Busan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeContent(TypePopup, tt.body)
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestMalformedPopupShareDegradesToText: a broken share card renders as text
// instead of failing the whole push.
func TestMalformedPopupShareDegradesToText(t *testing.T) {
	for _, body := range []string{`{"popId":`, `{"name":"no id"}`} {
		got := NormalizeContent(TypePopup, body)
		if txt, ok := got.(Text); !ok || txt.Body != body {
			t.Errorf("NormalizeContent(%q) = %#v, want Text fallback", body, got)
		}
	}
}

func TestEncodeContentPopupRoundTrip(t *testing.T) {
	in := PopupShare{PopupID: 3, Name: "Pop", ImageURL: "a.png", Address: "x"}
	out := NormalizeContent(TypePopup, EncodeContent(in))
	if out != in {
		t.Errorf("got %#v, want %#v", out, in)
	}
}

func TestSendRequestShape(t *testing.T) {
	b, err := json.Marshal(SendRequest{RoomID: 1, RoomType: Group, Content: "c", SenderID: 2, MessageType: TypeText, ClientMessageKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"roomId":1,"roomType":"GROUP","content":"c","senderId":2,"messageType":"TEXT","clientMessageKey":"k"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestParseRoomKey(t *testing.T) {
	k, err := ParseRoomKey("group/42")
	if err != nil || k != (RoomKey{Type: Group, ID: 42}) {
		t.Errorf("ParseRoomKey = %v, %v", k, err)
	}
	for _, bad := range []string{"GROUP", "GROUP/x", "DM/1", "GROUP/0"} {
		if _, err := ParseRoomKey(bad); err == nil {
			t.Errorf("ParseRoomKey(%q) expected error", bad)
		}
	}
}

func TestRoomKeyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Room RoomKey `json:"room"`
	}{RoomKey{Type: Private, ID: 4}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"room":"PRIVATE/4"}` {
		t.Errorf("got %s", b)
	}
	var back struct {
		Room RoomKey `json:"room"`
	}
	if err := json.Unmarshal(b, &back); err != nil || back.Room != (RoomKey{Type: Private, ID: 4}) {
		t.Errorf("decoded %v, %v", back.Room, err)
	}
}
