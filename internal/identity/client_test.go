package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_List_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/admin/users", r.URL.Path)
		require.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "50", r.URL.Query().Get("per_page"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"users": []Identity{
				{ID: "id-1", Email: "e1@staff.example.test"},
				{ID: "id-2", Email: "e2@staff.example.test"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	users, err := client.List(context.Background(), 2, 50)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "id-1", users[0].ID)
}

func TestClient_List_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "boom"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	_, err := client.List(context.Background(), 1, 50)
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestClient_ListAll_StopsOnShortPage(t *testing.T) {
	// Page 1 is full, page 2 is short: pagination must stop after two calls.
	pages := map[string][]Identity{
		"1": {{ID: "a"}, {ID: "b"}},
		"2": {{ID: "c"}},
	}
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"users": pages[r.URL.Query().Get("page")],
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	all, err := ListAll(context.Background(), client, 2)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 2, calls)
}

func TestClient_Create_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/admin/users", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Claims   Claims `json:"claims"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "e9@staff.example.test", req.Email)
		require.Equal(t, "E9", req.Claims.Code)

		json.NewEncoder(w).Encode(Identity{ID: "new-id", Email: req.Email, Claims: req.Claims})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	created, err := client.Create(context.Background(), "e9@staff.example.test", "pw", Claims{Role: "staff", Code: "E9"})
	require.NoError(t, err)
	require.Equal(t, "new-id", created.ID)
}

func TestClient_Create_ConflictMapsToDuplicateLoginKey(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusUnprocessableEntity} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"error": "email already registered"}`))
		}))

		client := NewClient(server.URL, "secret-key")
		_, err := client.Create(context.Background(), "taken@staff.example.test", "pw", Claims{})
		require.ErrorIs(t, err, ErrDuplicateLoginKey)
		server.Close()
	}
}

func TestClient_Update_Success(t *testing.T) {
	email := "moved@staff.example.test"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/admin/users/id-7", r.URL.Path)

		var patch Patch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		require.NotNil(t, patch.Email)
		require.Equal(t, email, *patch.Email)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	err := client.Update(context.Background(), "id-7", Patch{Email: &email})
	require.NoError(t, err)
}

func TestClient_Update_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	err := client.Update(context.Background(), "gone", Patch{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Update_ConflictMapsToDuplicateLoginKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	err := client.Update(context.Background(), "id-7", Patch{})
	require.ErrorIs(t, err, ErrDuplicateLoginKey)
}

func TestClient_Delete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/admin/users/id-3", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	require.NoError(t, client.Delete(context.Background(), "id-3"))
}

func TestClient_Delete_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	err := client.Delete(context.Background(), "gone")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_InvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	_, err := client.List(context.Background(), 1, 50)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestClient_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "secret-key")
	_, err := client.List(context.Background(), 1, 50)
	require.Error(t, err)
	require.Contains(t, err.Error(), "identity provider request")
}
