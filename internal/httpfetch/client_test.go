package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("payload"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(50 * time.Millisecond)
	defer c.Close()

	t.Run("success returns body", func(t *testing.T) {
		body, err := c.Get(context.Background(), srv.URL+"/ok")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(body))
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		_, err := c.Get(context.Background(), srv.URL+"/missing")
		assert.ErrorIs(t, err, ErrStatus)
	})

	t.Run("timeout is an error", func(t *testing.T) {
		_, err := c.Get(context.Background(), srv.URL+"/slow")
		assert.Error(t, err)
	})
}
