package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	t.Run("ApplicationError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"cannot mark as read"}`))
		}))
		defer srv.Close()

		err := NewClient(srv.URL).MarkNotificationRead(context.Background(), "n-1")
		require.Error(t, err)

		var ae *APIError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, http.StatusConflict, ae.Status)
		assert.Equal(t, "cannot mark as read", ae.AppMessage())
		assert.False(t, IsConnectivity(err))
	})

	t.Run("OpaqueServerError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream exploded"))
		}))
		defer srv.Close()

		err := NewClient(srv.URL).MarkNotificationRead(context.Background(), "n-1")
		require.Error(t, err)
		assert.True(t, IsConnectivity(err), "a rejection without an application message is a connectivity failure")
	})

	t.Run("TransportFailure", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", WithTimeout(200*time.Millisecond))
		err := c.MarkNotificationRead(context.Background(), "n-1")
		require.Error(t, err)
		assert.True(t, IsConnectivity(err))
	})
}

func TestBearerTokenInstalled(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"notifications":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetToken("token-abc")
	_, err := c.Notifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-abc", gotAuth)

	c.ClearToken()
	_, err = c.Notifications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestNotificationsDropsMalformedItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"notifications":[
			{"id":"good","kind":"order","message":"ok","occurred_at":"2026-08-01T00:00:00Z"},
			{"kind":"order","message":"missing id"},
			{"id":"also-good","kind":"weird-kind","message":"still decodes"}
		]}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL).Notifications(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "good", items[0].ID)
	assert.Equal(t, "also-good", items[1].ID)
}

func TestListParamsQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[],"page":2,"page_size":5,"total":0,"total_pages":0}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Products(context.Background(), ListParams{Page: 2, PageSize: 5, Search: "green tea"})
	require.NoError(t, err)
	assert.Equal(t, "page=2&page_size=5&search=green+tea", gotQuery)
	assert.Equal(t, 2, resp.Page)

	_, err = c.Products(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, "page=1&page_size=20", gotQuery, "defaults applied for zero params")
}
