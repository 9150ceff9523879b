package turmob

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePortal stands in for the e-fatura portal so tests pin the exact
// request/response shapes the client depends on without touching the
// network.
type fakePortal struct {
	mux    *http.ServeMux
	server *httptest.Server

	// every request that reached the portal, including page fetches
	requests int
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{mux: http.NewServeMux()}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.requests++
		p.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) newClient(t *testing.T, opts ClientOptions) *Client {
	opts.BaseUrl = p.server.URL
	if opts.SessionDir == "" {
		opts.SessionDir = t.TempDir()
	}
	client, err := NewClient(context.Background(), opts)
	require.NoError(t, err)
	return client
}

func loginPage(token string) string {
	return fmt.Sprintf(`<html><body>
<form action="/Account/Login" method="post">
<input name="__RequestVerificationToken" type="hidden" value="%s" />
<input name="VknTckn" type="text" />
<input name="Password" type="password" />
</form>
</body></html>`, token)
}

// the Invoice/Create and Invoice/CreateQuick pages only carry the token
// inside an inline script literal
func scriptTokenPage(token string) string {
	return fmt.Sprintf(`<html><head><script>
function getAntiForgeryToken() {
    let token = '<input name="__RequestVerificationToken" type="hidden" value="%s" />';
    return token;
}
</script></head><body></body></html>`, token)
}

// serveLogin wires a login flow that accepts exactly one credential pair
// and answers success with a bare 302 plus a session cookie.
func (p *fakePortal) serveLogin(t *testing.T, token, vknTckn, password string) {
	p.mux.HandleFunc("GET /Account/Login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginPage(token))
	})
	p.mux.HandleFunc("POST /Account/Login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, token, r.PostForm.Get("__RequestVerificationToken"))
		require.Equal(t, "on", r.PostForm.Get("RememberMe"))

		if r.PostForm.Get("VknTckn") != vknTckn || r.PostForm.Get("Password") != password {
			fmt.Fprint(w, "<html>Giriş başarısız</html>")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "sess-1", Path: "/"})
		w.Header().Set("Location", "/")
		w.WriteHeader(http.StatusFound)
	})
}

func (p *fakePortal) login(t *testing.T, client *Client, vknTckn, password string) {
	ok, err := client.Login(context.Background(), vknTckn, password)
	require.NoError(t, err)
	require.True(t, ok)
}
