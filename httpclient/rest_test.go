package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/apikit/apitest"
)

func TestVerbHelpers(t *testing.T) {
	srv := apitest.NewServer(t)
	echo := func(c *gin.Context) {
		var u user
		if err := json.NewDecoder(c.Request.Body).Decode(&u); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		u.Name = c.Request.Method + ":" + u.Name
		c.JSON(http.StatusOK, u)
	}
	srv.Handle(http.MethodPost, "/users", echo)
	srv.Handle(http.MethodPut, "/users/1", echo)
	srv.Handle(http.MethodPatch, "/users/1", echo)
	srv.NoContent(http.MethodDelete, "/users/1")
	srv.JSON(http.MethodGet, "/users", http.StatusOK, []user{{ID: 1}, {ID: 2}})

	c, _ := newTestClient(t, srv)
	s := c.Section("users")
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (*user, error)
		want string
	}{
		{"post", func() (*user, error) { return Post[user](ctx, s, "/users", user{Name: "a"}) }, "POST:a"},
		{"put", func() (*user, error) { return Put[user](ctx, s, "/users/1", user{Name: "b"}) }, "PUT:b"},
		{"patch", func() (*user, error) { return Patch[user](ctx, s, "/users/1", user{Name: "c"}) }, "PATCH:c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.call()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("Name = %q, want %q", got.Name, tt.want)
			}
		})
	}

	if err := Delete(ctx, s, "/users/1"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if hits := srv.Hits(http.MethodDelete, "/users/1"); hits != 1 {
		t.Errorf("DELETE hits = %d, want 1", hits)
	}

	list, err := GetList[user](ctx, s, "/users")
	if err != nil {
		t.Fatalf("GetList() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("GetList() len = %d, want 2", len(list))
	}
}

func TestSection_Accessors(t *testing.T) {
	c, err := New(Config{BaseURL: "http://localhost"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s := c.Section("auth", "/auth/login")
	if s.Name() != "auth" {
		t.Errorf("Name() = %q", s.Name())
	}
	if s.Client() != c {
		t.Error("Client() does not return the owning client")
	}
	if s.RequiresAuth("/auth/login") || !s.RequiresAuth("/auth/logout") {
		t.Error("RequiresAuth does not follow the anonymous set")
	}
}
