package oauth

import (
	"context"
	"fmt"
	"net/http"
)

const callbackPage = `<!DOCTYPE html>
<html><body><p>Signed in. You can close this tab and return to vidsift.</p></body></html>`

type outcome struct {
	code string
	err  error
}

// CallbackServer collects the authorization code the provider redirects
// back with.
type CallbackServer struct {
	port int
}

// NewCallbackServer creates a server that will listen on the given port.
func NewCallbackServer(port int) *CallbackServer {
	return &CallbackServer{port: port}
}

// callbackHandler serves /callback and reports the first outcome on
// results. Browsers sometimes retry the redirect; later hits still get a
// response but their outcome is discarded so the handler never blocks.
func callbackHandler(state string, results chan<- outcome) http.Handler {
	report := func(o outcome) {
		select {
		case results <- o:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "authorization denied", http.StatusBadRequest)
			report(outcome{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			report(outcome{err: fmt.Errorf("state mismatch in OAuth callback")})
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			report(outcome{err: fmt.Errorf("OAuth callback carried no code")})
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, callbackPage)
			report(outcome{code: q.Get("code")})
		}
	})
	return mux
}

// WaitForCallback serves /callback until the provider redirects the user
// back, then returns the authorization code. Redirects whose state does
// not match are rejected. The context bounds the wait.
func (s *CallbackServer) WaitForCallback(ctx context.Context, state string) (string, error) {
	results := make(chan outcome, 1)

	server := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: callbackHandler(state, results),
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	select {
	case result := <-results:
		return result.code, result.err
	case err := <-serveErr:
		return "", fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}
