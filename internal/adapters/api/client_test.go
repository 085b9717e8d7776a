package api

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, log.New(os.Stderr, "[test] ", log.LstdFlags))
}

func TestClient_Status(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(StatusReport{Status: "success", Message: "Connected to: Pixel 7"})
	})

	report, err := client.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !report.Connected() {
		t.Error("expected connected status")
	}
}

func TestClient_StatusWarningIsNotConnected(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(StatusReport{Status: "warning", Message: "no device"})
	})

	report, err := client.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if report.Connected() {
		t.Error("warning status must not report connected")
	}
}

func TestClient_ListPath(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/list_path" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["path"] != "/sdcard/DCIM" {
			t.Errorf("unexpected path in request: %q", req["path"])
		}
		json.NewEncoder(w).Encode([]DirEntry{
			{Name: "Camera/", Size: "-", IsDir: true},
			{Name: "photo.jpg", Size: "2.41 MB", IsDir: false},
		})
	})

	entries, err := client.ListPath("/sdcard/DCIM")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].IsDir || entries[0].Name != "Camera/" {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
}

func TestClient_PreviewFile(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PreviewResult{Success: true, LocalPath: "/tmp/photo.jpg"})
	})

	local, err := client.PreviewFile("/sdcard/photo.jpg")
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if local != "/tmp/photo.jpg" {
		t.Errorf("unexpected local path %q", local)
	}
}

func TestClient_PreviewFailureSurfaced(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(PreviewResult{Success: false, Error: "pull failed"})
	})

	if _, err := client.PreviewFile("/sdcard/photo.jpg"); err == nil {
		t.Error("expected preview failure to surface")
	}
}

func TestClient_Login(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["user_id"] != "alice" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ackResult{Success: false, Message: "Invalid user ID or account expired."})
			return
		}
		json.NewEncoder(w).Encode(LoginResult{
			Success: true,
			User:    "alice",
			Info:    AccountInfo{Container: "user-alice-1", Plan: "basic", LimitGB: 10},
		})
	})

	result, err := client.Login("alice")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Info.Plan != "basic" {
		t.Errorf("unexpected plan %q", result.Info.Plan)
	}

	if _, err := client.Login("mallory"); err == nil {
		t.Error("expected rejected login to return an error")
	}
}

func TestClient_CreateAccount(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["plan"] == "platinum" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ackResult{Success: false, Message: "Invalid plan selected."})
			return
		}
		json.NewEncoder(w).Encode(ackResult{Success: true, Message: "Account created."})
	})

	if err := client.CreateAccount("bob", "free"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := client.CreateAccount("bob", "platinum"); err == nil {
		t.Error("expected invalid plan to be rejected")
	}
}

func TestClient_AdminUsers(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]AdminUser{
			{UserID: "alice", Plan: "pro", LimitGB: 100, UsageGB: 12.5},
		})
	})

	users, err := client.AdminUsers()
	if err != nil {
		t.Fatalf("admin users failed: %v", err)
	}
	if len(users) != 1 || users[0].UsageGB != 12.5 {
		t.Errorf("unexpected users %+v", users)
	}
}

func TestClient_AdminDeleteUser(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["user_id"] != "alice" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ackResult{Success: false, Message: "User not found."})
			return
		}
		json.NewEncoder(w).Encode(ackResult{Success: true})
	})

	if err := client.AdminDeleteUser("alice"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := client.AdminDeleteUser("ghost"); err == nil {
		t.Error("expected missing user deletion to fail")
	}
}

func TestClient_ConnectivityErrorSurfaced(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", log.New(os.Stderr, "[test] ", log.LstdFlags))
	if _, err := client.Status(); err == nil {
		t.Error("expected connection error")
	}
}
