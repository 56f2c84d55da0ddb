package e2e

import (
	"fmt"
	"net/http"
	"testing"
)

// seededAvatarIDs fetches the IDs of the default avatar library.
func seededAvatarIDs(t *testing.T, ta *testApp) []string {
	t.Helper()
	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/avatars/", "")
	if err != nil {
		t.Fatalf("list avatars failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	avatars, _ := body["avatars"].([]interface{})
	ids := make([]string, 0, len(avatars))
	for _, a := range avatars {
		m, _ := a.(map[string]interface{})
		id, _ := m["id"].(string)
		ids = append(ids, id)
	}
	return ids
}

func TestAvatarLibrarySeeded(t *testing.T) {
	ta := setupApp(t)

	ids := seededAvatarIDs(t, ta)
	if len(ids) != 3 {
		t.Fatalf("expected 3 seeded avatars, got %d", len(ids))
	}

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/avatars/"+ids[0], "")
	if err != nil {
		t.Fatalf("get avatar failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	avatar := parseJSON(t, resp)
	if avatar["name"] == "" {
		t.Error("expected avatar name")
	}
}

func TestAvatarCreate(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/avatars/",
		`{"name": "Nova", "personality": "curious science reporter", "voiceStyle": "warm"}`)
	if err != nil {
		t.Fatalf("create avatar failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	avatar := parseJSON(t, resp)
	if avatar["id"] == "" || avatar["name"] != "Nova" {
		t.Errorf("unexpected avatar: %v", avatar)
	}

	// Personality is required.
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/avatars/", `{"name": "Nameless"}`)
	if err != nil {
		t.Fatalf("create avatar failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestConversationCreateAccepted(t *testing.T) {
	ta := setupApp(t)
	ids := seededAvatarIDs(t, ta)

	body := fmt.Sprintf(`{
		"topic": "the impact of AI on journalism",
		"style": "debate",
		"avatarIds": ["%s", "%s"],
		"numExchanges": 4
	}`, ids[0], ids[1])

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/conversations/", body)
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	created := parseJSON(t, resp)
	convID, _ := created["conversationId"].(string)
	if convID == "" {
		t.Fatalf("expected conversationId, got %v", created)
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/conversations/"+convID, "")
	if err != nil {
		t.Fatalf("get conversation failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	conv := parseJSON(t, resp)
	if conv["topic"] != "the impact of AI on journalism" {
		t.Errorf("topic = %v", conv["topic"])
	}
	if conv["turnPolicy"] != "drop_failed" {
		t.Errorf("expected default turn policy recorded, got %v", conv["turnPolicy"])
	}
}

func TestConversationCreateValidation(t *testing.T) {
	ta := setupApp(t)
	ids := seededAvatarIDs(t, ta)

	// Fewer than two participants.
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/conversations/",
		fmt.Sprintf(`{"topic": "t", "avatarIds": ["%s"]}`, ids[0]))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)

	// Unknown participant.
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/conversations/",
		fmt.Sprintf(`{"topic": "t", "avatarIds": ["%s", "ghost"]}`, ids[0]))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)

	// Unknown turn policy.
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/conversations/",
		fmt.Sprintf(`{"topic": "t", "avatarIds": ["%s", "%s"], "turnPolicy": "maybe"}`, ids[0], ids[1]))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestConversationListEndpoint(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/conversations/", "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}
