package main

import (
	"context"
	"fmt"
	"net/http"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// exchanger trades the callback request for a token.
type exchanger interface {
	Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// callback completes the authorization code flow and hands over the refresh token.
type callback struct {
	auth   exchanger
	state  string
	tokens chan string
}

func newCallback(auth exchanger, state string) *callback {
	return &callback{auth: auth, state: state, tokens: make(chan string, 1)}
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if st := r.FormValue("state"); st != c.state {
		http.Error(w, "State mismatch", http.StatusForbidden)
		zlog.Warn().Msgf("Callback state mismatch: got=%s", st)
		return
	}

	token, err := c.auth.Token(r.Context(), c.state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusForbidden)
		zlog.Error().Msgf("Failed to get token: %v", err)
		return
	}
	if token.RefreshToken == "" {
		http.Error(w, "No refresh token issued", http.StatusBadGateway)
		zlog.Error().Msg("Spotify issued no refresh token")
		return
	}

	fmt.Fprint(w, completePage)

	select {
	case c.tokens <- token.RefreshToken:
	default:
	}
}

const completePage = `<!DOCTYPE html>
<html>
<head>
    <title>CloudTune - Authorization Complete</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #191414;
            color: white;
        }
        .container { text-align: center; padding: 40px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authorization Complete</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
