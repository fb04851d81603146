package api

import (
	"bytes"
	"chat-link/auth"
	"chat-link/domain"
	"chat-link/moderation"
	"chat-link/observability"
	"chat-link/repositories"
	"chat-link/runtime"
	"chat-link/services"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

var tokenConfig = auth.TokenConfig{
	AccessSecret:       []byte("access-secret"),
	RefreshSecret:      []byte("refresh-secret"),
	AccessTTL:          time.Hour,
	RefreshTTL:         24 * time.Hour,
	RefreshedAccessTTL: 30 * time.Minute,
}

// APISuite runs the whole server on a temporary badger and an in-memory index.
type APISuite struct {
	suite.Suite
	db       *badger.DB
	index    *repositories.UserIndex
	registry *runtime.Registry
	server   *httptest.Server
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	index, err := repositories.OpenUserIndex("", log)
	s.Require().NoError(err)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*')
	s.Require().NoError(err)

	userRepository := repositories.NewUserRepository(db, log)
	blacklistRepository := repositories.NewBlacklistRepository(db, log)
	registry := runtime.NewRegistry()
	metrics := observability.NewMetrics(registry.Len)

	credentials := services.NewCredentialService(log, userRepository, blacklistRepository, index,
		auth.NewPasswordHasher(1, 8*1024), auth.NewTokenIssuer(tokenConfig))
	handlers := NewHandlers(log, credentials,
		services.NewMessageService(log, userRepository),
		services.NewDirectoryService(log, userRepository, index),
		registry, nil)
	coordinator := runtime.NewDeliveryCoordinator(userRepository, registry, moderator, metrics, log, time.Second)
	socket := NewSocketHandler(log, registry, coordinator, nil, 8, time.Second)

	s.db, s.index, s.registry = db, index, registry
	s.server = httptest.NewServer(NewRouter(log, handlers, socket, credentials, metrics))
}

func (s *APISuite) TearDownTest() {
	s.server.Close()
	_ = s.index.Close()
	_ = s.db.Close()
}

func (s *APISuite) step(name string) {
	s.T().Log(color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf("  ====== %s ======", name)))
}

func (s *APISuite) do(method, path, token string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, data
}

func (s *APISuite) decode(data []byte, v any) {
	s.Require().NoError(json.Unmarshal(data, v), string(data))
}

func (s *APISuite) signUp(name string) domain.User {
	status, data := s.do(http.MethodPost, "/signUp", "", services.SignUpCommand{
		Name: name, Email: strings.ToLower(name) + "@example.com", Password: "Secret123!",
	})
	s.Require().Equal(http.StatusCreated, status, string(data))
	var user domain.User
	s.decode(data, &user)
	return user
}

func (s *APISuite) logIn(name string) services.LoginResult {
	status, data := s.do(http.MethodPost, "/logIn", "", loginBody{
		Email: strings.ToLower(name) + "@example.com", Password: "Secret123!",
	})
	s.Require().Equal(http.StatusOK, status, string(data))
	var result services.LoginResult
	s.decode(data, &result)
	return result
}

func (s *APISuite) socketURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/socket"
}

func (s *APISuite) dial(token string) *websocket.Conn {
	ws, _, err := websocket.DefaultDialer.Dial(s.socketURL()+"?token="+token, nil)
	s.Require().NoError(err)
	return ws
}

func (s *APISuite) send(ws *websocket.Conn, event string, data any) {
	payload, err := json.Marshal(data)
	s.Require().NoError(err)
	s.Require().NoError(ws.WriteJSON(Envelope{Event: event, Data: payload}))
}

func (s *APISuite) receive(ws *websocket.Conn) Envelope {
	s.Require().NoError(ws.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var frame Envelope
	s.Require().NoError(ws.ReadJSON(&frame))
	return frame
}

func (s *APISuite) TestHome() {
	status, data := s.do(http.MethodGet, "/", "", nil)
	s.Equal(http.StatusOK, status)
	s.JSONEq(`{"message":"Server working"}`, string(data))
}

func (s *APISuite) TestHealthAndMetrics() {
	status, data := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, status)
	s.JSONEq(`{"status":"ok","live_sessions":0}`, string(data))

	// The access log counts a request once its handler returned
	s.Eventually(func() bool {
		status, data := s.do(http.MethodGet, "/metrics", "", nil)
		return status == http.StatusOK &&
			strings.Contains(string(data), "chat_live_sessions") &&
			strings.Contains(string(data), `chat_http_requests_total{route="/healthz",status="200"} 1`)
	}, 2*time.Second, 20*time.Millisecond)
}

func (s *APISuite) TestSignUp_Duplicate() {
	s.step("Sign up twice with the same email")
	first := s.signUp("Alice")

	status, data := s.do(http.MethodPost, "/signUp", "", services.SignUpCommand{
		Name: "Other", Email: "ALICE@example.com", Password: "Secret123!",
	})
	s.Equal(http.StatusBadRequest, status)
	s.JSONEq(`{"message":"User is already present."}`, string(data))

	// The first account still logs in
	s.Equal(first.ID, s.logIn("Alice").User.ID)
}

func (s *APISuite) TestSignUp_Invalid_Body() {
	status, _ := s.do(http.MethodPost, "/signUp", "", map[string]string{"name": "x", "email": "nope"})
	s.Equal(http.StatusBadRequest, status)
}

func (s *APISuite) TestCreateUser() {
	status, data := s.do(http.MethodPost, "/user", "", services.SignUpCommand{
		Name: "Basic", Email: "basic@example.com", Password: "pw",
	})
	s.Equal(http.StatusCreated, status)
	var user domain.User
	s.decode(data, &user)
	s.NotEmpty(user.ID)
	s.NotContains(string(data), "pw")

	status, _ = s.do(http.MethodPost, "/user", "", services.SignUpCommand{
		Name: "Basic", Email: "basic@example.com", Password: "pw",
	})
	s.Equal(http.StatusInternalServerError, status)
}

func (s *APISuite) TestLogIn_Failures_Look_The_Same() {
	s.signUp("Alice")

	wrongStatus, wrongBody := s.do(http.MethodPost, "/logIn", "", loginBody{Email: "alice@example.com", Password: "nope"})
	unknownStatus, unknownBody := s.do(http.MethodPost, "/logIn", "", loginBody{Email: "ghost@example.com", Password: "nope"})

	s.Equal(http.StatusUnauthorized, wrongStatus)
	s.Equal(http.StatusUnauthorized, unknownStatus)
	s.Equal(string(wrongBody), string(unknownBody))
}

func (s *APISuite) TestGated_Routes() {
	alice := s.signUp("Alice")
	bob := s.signUp("Bob")
	token := s.logIn("Alice").AccessToken

	s.step("No token")
	status, data := s.do(http.MethodGet, "/allUsers?userId="+alice.ID, "", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.JSONEq(`{"message":"Login First!"}`, string(data))

	s.step("Garbage token")
	status, _ = s.do(http.MethodGet, "/allUsers", "garbage", nil)
	s.Equal(http.StatusUnauthorized, status)

	s.step("Expired token")
	expired, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret: tokenConfig.AccessSecret,
		AccessTTL:    -time.Minute,
	}).IssueAccess(alice.ID)
	s.Require().NoError(err)
	status, data = s.do(http.MethodGet, "/allUsers", expired, nil)
	s.Equal(http.StatusUnauthorized, status)
	s.JSONEq(`{"message":"Access token expired"}`, string(data))

	s.step("Valid token")
	status, data = s.do(http.MethodGet, "/allUsers?userId="+alice.ID, token, nil)
	s.Equal(http.StatusOK, status)
	var users []domain.User
	s.decode(data, &users)
	s.Len(users, 1)
	s.Equal(bob.ID, users[0].ID)

	s.step("Not a user id")
	status, _ = s.do(http.MethodGet, "/allUsers?userId=not-a-uuid", token, nil)
	s.Equal(http.StatusNotFound, status)

	s.step("Search")
	status, data = s.do(http.MethodGet, "/searchUsers?search=BO&userId="+alice.ID, token, nil)
	s.Equal(http.StatusOK, status)
	users = nil
	s.decode(data, &users)
	s.Len(users, 1)
	s.Equal(bob.ID, users[0].ID)
}

func (s *APISuite) TestLogOut_Revokes_Token() {
	s.signUp("Alice")
	token := s.logIn("Alice").AccessToken

	// A missing token is a server error, the body never details it
	status, data := s.do(http.MethodGet, "/logOut", "", nil)
	s.Equal(http.StatusInternalServerError, status)
	s.JSONEq(`{"error":"Internal Server Error"}`, string(data))

	status, _ = s.do(http.MethodGet, "/logOut", token, nil)
	s.Equal(http.StatusOK, status)

	// Still signed and unexpired, but forbidden
	status, _ = s.do(http.MethodGet, "/allUsers", token, nil)
	s.Equal(http.StatusForbidden, status)

	// Revoking twice is a server error
	status, _ = s.do(http.MethodGet, "/logOut", token, nil)
	s.Equal(http.StatusInternalServerError, status)
}

func (s *APISuite) TestLogOut_Accepts_Misspelled_Header() {
	s.signUp("Alice")
	token := s.logIn("Alice").AccessToken

	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/logOut", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorisation", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	_ = resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *APISuite) TestRefreshToken() {
	s.signUp("Alice")
	login := s.logIn("Alice")

	status, data := s.do(http.MethodGet, "/refreshToken", login.RefreshToken, nil)
	s.Equal(http.StatusOK, status)
	var body tokenResponse
	s.decode(data, &body)

	status, _ = s.do(http.MethodGet, "/allUsers", body.Token, nil)
	s.Equal(http.StatusOK, status)

	// An access token cannot refresh
	status, data = s.do(http.MethodGet, "/refreshToken", login.AccessToken, nil)
	s.Equal(http.StatusForbidden, status)
	s.JSONEq(`{"message":"Login First"}`, string(data))
}

func (s *APISuite) TestLiveDelivery_And_History() {
	alice := s.signUp("Alice")
	bob := s.signUp("Bob")
	token := s.logIn("Alice").AccessToken
	bobToken := s.logIn("Bob").AccessToken

	s.step("Both clients register")
	aliceSocket, bobSocket := s.dial(token), s.dial(bobToken)
	defer aliceSocket.Close()
	s.send(aliceSocket, EventCreateConnection, createConnection{UserID: alice.ID})
	s.send(bobSocket, EventCreateConnection, createConnection{UserID: bob.ID})
	s.Eventually(func() bool { return s.registry.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	s.step("Alice writes to Bob")
	s.send(aliceSocket, EventChatMessage, domain.InboundMessage{Message: "hi bob", SenderID: alice.ID, ReceiverID: bob.ID})
	s.send(aliceSocket, EventChatMessage, domain.InboundMessage{Message: "a badger", SenderID: alice.ID, ReceiverID: bob.ID})

	for _, expected := range []string{"hi bob", "a ******"} {
		frame := s.receive(bobSocket)
		s.Equal(EventReceivedMessage, frame.Event)
		var received domain.ReceivedMessage
		s.decode(frame.Data, &received)
		s.Equal(domain.ReceivedMessage{Message: expected, SenderID: alice.ID}, received)
	}

	s.step("Bob leaves, Alice keeps writing")
	s.Require().NoError(bobSocket.Close())
	s.Eventually(func() bool { return s.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	s.send(aliceSocket, EventChatMessage, domain.InboundMessage{Message: "offline", SenderID: alice.ID, ReceiverID: bob.ID})

	s.step("Both histories hold every message")
	var entries []domain.HistoryEntry
	s.Eventually(func() bool {
		status, data := s.do(http.MethodGet, "/getAllMessages?user1="+bob.ID+"&user2="+alice.ID, bobToken, nil)
		entries = nil
		return status == http.StatusOK && json.Unmarshal(data, &entries) == nil && len(entries) == 3
	}, 2*time.Second, 20*time.Millisecond)
	for _, entry := range entries {
		s.Equal(domain.DirectionReceive, entry.Type)
	}
	s.Equal("offline", entries[2].Data.Message)

	status, data := s.do(http.MethodGet, "/getAllMessages?user1="+alice.ID+"&user2="+bob.ID, token, nil)
	s.Equal(http.StatusOK, status)
	entries = nil
	s.decode(data, &entries)
	s.Len(entries, 3)
	s.Equal(domain.DirectionSend, entries[0].Type)

	s.step("Connected users")
	status, data = s.do(http.MethodGet, "/connectedUser?userId="+alice.ID, token, nil)
	s.Equal(http.StatusOK, status)
	var contacts struct {
		Data []domain.User `json:"data"`
	}
	s.decode(data, &contacts)
	s.Len(contacts.Data, 1)
	s.Equal(bob.ID, contacts.Data[0].ID)

	s.step("Alice clears only the sender side")
	status, data = s.do(http.MethodPost, "/clearChatMessages", token, clearBody{Sender: alice.ID, Receiver: bob.ID})
	s.Equal(http.StatusOK, status)
	var result domain.ClearResult
	s.decode(data, &result)
	s.Equal(domain.ClearResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1, RemovedCount: 3}, result)

	_, data = s.do(http.MethodGet, "/getAllMessages?user1="+alice.ID+"&user2="+bob.ID, token, nil)
	s.JSONEq(`[]`, string(data))
	_, data = s.do(http.MethodGet, "/getAllMessages?user1="+bob.ID+"&user2="+alice.ID, bobToken, nil)
	entries = nil
	s.decode(data, &entries)
	s.Len(entries, 3)
}

func (s *APISuite) TestSocket_Rejects_Malformed_Frames() {
	s.signUp("Alice")
	ws := s.dial(s.logIn("Alice").AccessToken)
	defer ws.Close()

	s.send(ws, "typing", map[string]string{})
	frame := s.receive(ws)
	s.Equal(EventError, frame.Event)

	s.send(ws, EventChatMessage, map[string]string{"message": "no receiver"})
	frame = s.receive(ws)
	s.Equal(EventError, frame.Event)
	var body messageBody
	s.decode(frame.Data, &body)
	s.Contains(body.Message, "invalid request")

	s.send(ws, EventCreateConnection, map[string]string{})
	s.Equal(EventError, s.receive(ws).Event)
	s.Zero(s.registry.Len())
}

func (s *APISuite) TestSocket_Reconnect_Keeps_Newest() {
	alice := s.signUp("Alice")
	token := s.logIn("Alice").AccessToken
	first, second := s.dial(token), s.dial(token)
	defer second.Close()

	s.send(first, EventCreateConnection, createConnection{UserID: alice.ID})
	s.Eventually(func() bool { return s.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	conn, _ := s.registry.Lookup(alice.ID)
	firstID := conn.ID()

	s.send(second, EventCreateConnection, createConnection{UserID: alice.ID})
	s.Eventually(func() bool {
		conn, ok := s.registry.Lookup(alice.ID)
		return ok && conn.ID() != firstID
	}, 2*time.Second, 10*time.Millisecond)

	// The stale socket closing must not evict the new one
	s.Require().NoError(first.Close())
	s.Never(func() bool { return s.registry.Len() == 0 }, 200*time.Millisecond, 20*time.Millisecond)
}

func (s *APISuite) TestSocket_Requires_Token() {
	alice := s.signUp("Alice")
	token := s.logIn("Alice").AccessToken

	s.step("Anonymous handshake")
	_, resp, err := websocket.DefaultDialer.Dial(s.socketURL(), nil)
	s.ErrorIs(err, websocket.ErrBadHandshake)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	s.step("Garbage token")
	_, resp, err = websocket.DefaultDialer.Dial(s.socketURL()+"?token=garbage", nil)
	s.Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	s.step("Bearer header")
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	ws, _, err := websocket.DefaultDialer.Dial(s.socketURL(), header)
	s.Require().NoError(err)
	defer ws.Close()
	s.send(ws, EventCreateConnection, createConnection{UserID: alice.ID})
	s.Eventually(func() bool { return s.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func (s *APISuite) TestSocket_Rejects_Other_Identities() {
	alice := s.signUp("Alice")
	bob := s.signUp("Bob")
	mallory := s.signUp("Mallory")
	bobSocket := s.dial(s.logIn("Bob").AccessToken)
	defer bobSocket.Close()
	mallorySocket := s.dial(s.logIn("Mallory").AccessToken)
	defer mallorySocket.Close()

	s.send(bobSocket, EventCreateConnection, createConnection{UserID: bob.ID})
	s.Eventually(func() bool { return s.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.step("Mallory cannot take over Bob's session")
	s.send(mallorySocket, EventCreateConnection, createConnection{UserID: bob.ID})
	frame := s.receive(mallorySocket)
	s.Equal(EventError, frame.Event)
	var body messageBody
	s.decode(frame.Data, &body)
	s.Contains(body.Message, "does not match")
	conn, ok := s.registry.Lookup(bob.ID)
	s.Require().True(ok)
	s.Equal(1, s.registry.Len())

	s.step("Mallory cannot write as Alice")
	s.send(mallorySocket, EventChatMessage, domain.InboundMessage{Message: "forged", SenderID: alice.ID, ReceiverID: bob.ID})
	s.Equal(EventError, s.receive(mallorySocket).Event)

	// Frames are handled in order, so Bob's first message is the genuine one
	s.send(mallorySocket, EventChatMessage, domain.InboundMessage{Message: "genuine", SenderID: mallory.ID, ReceiverID: bob.ID})
	frame = s.receive(bobSocket)
	var received domain.ReceivedMessage
	s.decode(frame.Data, &received)
	s.Equal(domain.ReceivedMessage{Message: "genuine", SenderID: mallory.ID}, received)

	current, _ := s.registry.Lookup(bob.ID)
	s.Equal(conn.ID(), current.ID())
}

func (s *APISuite) TestHistory_Belongs_To_Caller() {
	alice := s.signUp("Alice")
	bob := s.signUp("Bob")
	s.signUp("Mallory")
	bobToken := s.logIn("Bob").AccessToken
	malloryToken := s.logIn("Mallory").AccessToken

	aliceSocket := s.dial(s.logIn("Alice").AccessToken)
	defer aliceSocket.Close()
	s.send(aliceSocket, EventChatMessage, domain.InboundMessage{Message: "hi bob", SenderID: alice.ID, ReceiverID: bob.ID})
	s.Eventually(func() bool {
		_, data := s.do(http.MethodGet, "/getAllMessages?user1="+bob.ID+"&user2="+alice.ID, bobToken, nil)
		return strings.Contains(string(data), "hi bob")
	}, 2*time.Second, 20*time.Millisecond)

	s.step("Mallory reads Bob's history")
	status, data := s.do(http.MethodGet, "/getAllMessages?user1="+bob.ID+"&user2="+alice.ID, malloryToken, nil)
	s.Equal(http.StatusForbidden, status)
	s.NotContains(string(data), "hi bob")

	s.step("Mallory lists Bob's contacts")
	status, _ = s.do(http.MethodGet, "/connectedUser?userId="+bob.ID, malloryToken, nil)
	s.Equal(http.StatusForbidden, status)

	s.step("Mallory clears Bob's history")
	status, _ = s.do(http.MethodPost, "/clearChatMessages", malloryToken, clearBody{Sender: bob.ID, Receiver: alice.ID})
	s.Equal(http.StatusForbidden, status)

	// Bob's history is untouched
	status, data = s.do(http.MethodGet, "/getAllMessages?user1="+bob.ID+"&user2="+alice.ID, bobToken, nil)
	s.Equal(http.StatusOK, status)
	var entries []domain.HistoryEntry
	s.decode(data, &entries)
	s.Len(entries, 1)

	s.step("Missing ids default to the caller")
	status, data = s.do(http.MethodGet, "/getAllMessages?user2="+alice.ID, bobToken, nil)
	s.Equal(http.StatusOK, status)
	entries = nil
	s.decode(data, &entries)
	s.Len(entries, 1)
}
