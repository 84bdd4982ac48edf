package calendly

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"resource": map[string]string{
				"uri":                  "https://api.calendly.com/users/u1",
				"name":                 "Salon Athens",
				"email":                "owner@example.com",
				"current_organization": "https://api.calendly.com/organizations/o1",
			},
		})
	}))
	defer server.Close()

	client := NewClient("key-1", server.URL)
	user, err := client.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "https://api.calendly.com/users/u1", user.URI)
	assert.Equal(t, "Salon Athens", user.Name)
}

func TestEventTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/event_types", r.URL.Path)
		assert.Equal(t, "https://api.calendly.com/users/u1", r.URL.Query().Get("user"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"collection": []map[string]interface{}{
				{"uri": "et-1", "name": "Haircut", "active": true, "duration": 30},
				{"uri": "et-2", "name": "Retired", "active": false, "duration": 60},
			},
		})
	}))
	defer server.Close()

	client := NewClient("key-1", server.URL)
	types, err := client.EventTypes("https://api.calendly.com/users/u1")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Haircut", types[0].Name)
	assert.True(t, types[0].Active)
	assert.False(t, types[1].Active)
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"title":"Unauthenticated"}`))
	}))
	defer server.Close()

	client := NewClient("bad-key", server.URL)
	_, err := client.CurrentUser()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"invitee.created"}`)

	mac := hmac.New(sha256.New, []byte("signing-key"))
	mac.Write(payload)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature("signing-key", payload, signature))
	assert.False(t, VerifySignature("other-key", payload, signature))
	assert.False(t, VerifySignature("signing-key", []byte("tampered"), signature))
}
