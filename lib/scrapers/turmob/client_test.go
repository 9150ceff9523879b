package turmob

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"turmob-efatura/lib/scrapers/turmob/session"

	"github.com/stretchr/testify/require"
)

func TestLoginRedirectSuccess(t *testing.T) {
	portal := newFakePortal(t)
	portal.serveLogin(t, "tok-1", "1234567890", "hunter2")

	client := portal.newClient(t, ClientOptions{})
	require.False(t, client.IsLoggedIn())

	ok, err := client.Login(context.Background(), "1234567890", "hunter2")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, client.IsLoggedIn())
}

func TestLoginBodySuccess(t *testing.T) {
	// the portal occasionally renders a success page instead of
	// redirecting; a body carrying the base url still counts
	portal := newFakePortal(t)
	portal.mux.HandleFunc("GET /Account/Login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginPage("tok-2"))
	})
	portal.mux.HandleFunc("POST /Account/Login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><a href="%s/Invoice/Create">devam</a></html>`, portal.server.URL)
	})

	client := portal.newClient(t, ClientOptions{})
	ok, err := client.Login(context.Background(), "1234567890", "whatever")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, client.IsLoggedIn())
}

func TestLoginRejected(t *testing.T) {
	portal := newFakePortal(t)
	portal.serveLogin(t, "tok-3", "1234567890", "hunter2")

	client := portal.newClient(t, ClientOptions{})
	ok, err := client.Login(context.Background(), "1234567890", "wrong-password")
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, client.IsLoggedIn())
}

func TestLoginTokenMissing(t *testing.T) {
	portal := newFakePortal(t)
	portal.mux.HandleFunc("GET /Account/Login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>maintenance page, no form</body></html>")
	})

	client := portal.newClient(t, ClientOptions{})
	_, err := client.Login(context.Background(), "1234567890", "hunter2")
	require.ErrorIs(t, err, ErrTokenNotFound)
	require.False(t, client.IsLoggedIn())
}

func TestLoginConnectionError(t *testing.T) {
	portal := newFakePortal(t)
	portal.server.Close()

	client := portal.newClient(t, ClientOptions{})
	_, err := client.Login(context.Background(), "1234567890", "hunter2")
	require.ErrorIs(t, err, ErrConnection)
}

func TestMutatingOperationsRequireLogin(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.newClient(t, ClientOptions{})

	_, err := client.GetInvoiceUser(context.Background(), "Acme Ltd", "1234567890", "Şişli", "İstanbul")
	require.ErrorIs(t, err, ErrAuthenticationRequired)

	_, _, err = client.CreateInvoice(context.Background(), 42, nil, Totals{})
	require.ErrorIs(t, err, ErrAuthenticationRequired)

	_, err = client.SaveSession()
	require.ErrorIs(t, err, ErrAuthenticationRequired)

	// the precondition is checked before any network call
	require.Equal(t, 0, portal.requests)
}

func TestValidateSession(t *testing.T) {
	portal := newFakePortal(t)
	portal.serveLogin(t, "tok-4", "1234567890", "hunter2")
	portal.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("ASP.NET_SessionId")
		if err != nil || cookie.Value != "sess-1" {
			w.Header().Set("Location", "/Account/Login")
			w.WriteHeader(http.StatusFound)
			return
		}
		fmt.Fprint(w, "<html>anasayfa</html>")
	})

	client := portal.newClient(t, ClientOptions{})

	// not logged in: false without a network call
	before := portal.requests
	valid, err := client.ValidateSession(context.Background())
	require.NoError(t, err)
	require.False(t, valid)
	require.Equal(t, before, portal.requests)

	portal.login(t, client, "1234567890", "hunter2")
	valid, err = client.ValidateSession(context.Background())
	require.NoError(t, err)
	require.True(t, valid)
}

func TestSaveAndRestoreSession(t *testing.T) {
	portal := newFakePortal(t)
	portal.serveLogin(t, "tok-5", "1234567890", "hunter2")
	portal.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("ASP.NET_SessionId")
		if err != nil || cookie.Value != "sess-1" {
			w.WriteHeader(http.StatusFound)
			return
		}
		fmt.Fprint(w, "<html>anasayfa</html>")
	})

	sessionDir := t.TempDir()

	client := portal.newClient(t, ClientOptions{SessionDir: sessionDir})
	portal.login(t, client, "1234567890", "hunter2")

	id, err := client.SaveSession()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// a second client restores the cookie state from the saved session
	restored := portal.newClient(t, ClientOptions{SessionDir: sessionDir, SessionId: id})
	require.True(t, restored.IsLoggedIn())

	valid, err := restored.ValidateSession(context.Background())
	require.NoError(t, err)
	require.True(t, valid)
}

func TestRestoreUnknownSession(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.newClient(t, ClientOptions{SessionId: "deadbeefdeadbeefdeadbeefdeadbeef"})
	require.False(t, client.IsLoggedIn())
}

func TestCloseDropsUnsavedCookies(t *testing.T) {
	portal := newFakePortal(t)
	portal.serveLogin(t, "tok-6", "1234567890", "hunter2")

	client := portal.newClient(t, ClientOptions{})
	portal.login(t, client, "1234567890", "hunter2")
	require.NotEmpty(t, client.Http.GetClient().Jar.Cookies(client.BaseUrl))

	require.NoError(t, client.Close())
	require.Empty(t, client.Http.GetClient().Jar.Cookies(client.BaseUrl))
	require.False(t, client.IsLoggedIn())
}

func TestClosePreservesSavedSession(t *testing.T) {
	portal := newFakePortal(t)
	portal.serveLogin(t, "tok-7", "1234567890", "hunter2")

	sessionDir := t.TempDir()
	client := portal.newClient(t, ClientOptions{SessionDir: sessionDir})
	portal.login(t, client, "1234567890", "hunter2")

	id, err := client.SaveSession()
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.True(t, client.IsLoggedIn())

	store, err := session.NewStore(sessionDir)
	require.NoError(t, err)
	_, err = store.Load(id)
	require.NoError(t, err)
}
